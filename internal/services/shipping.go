package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/models"
)

const (
	CarrierCJ     = "cj"
	CarrierHanjin = "hanjin"
	CarrierLotte  = "lotte"
	CarrierEpost  = "epost"
	CarrierLogen  = "logen"
)

// NormalizeCarrier returns the canonical key of a known Korean carrier, or "".
func NormalizeCarrier(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "", "-", "", "_", "", ".", "").Replace(normalized)

	switch normalized {
	case "cj", "cj대한통운", "대한통운", "cjlogistics", "cjkoreaexpress":
		return CarrierCJ
	case "hanjin", "한진", "한진택배":
		return CarrierHanjin
	case "lotte", "롯데", "롯데택배", "lotteglogis":
		return CarrierLotte
	case "epost", "우체국", "우체국택배", "koreapost":
		return CarrierEpost
	case "logen", "로젠", "로젠택배", "ilogen":
		return CarrierLogen
	default:
		return ""
	}
}

// CarrierName maps a carrier key to its display name.
func CarrierName(carrier string) string {
	switch NormalizeCarrier(carrier) {
	case CarrierCJ:
		return "CJ대한통운"
	case CarrierHanjin:
		return "한진택배"
	case CarrierLotte:
		return "롯데택배"
	case CarrierEpost:
		return "우체국택배"
	case CarrierLogen:
		return "로젠택배"
	default:
		return strings.TrimSpace(carrier)
	}
}

// BuildTrackingURL returns the carrier's tracking page. Unknown carriers return empty.
func BuildTrackingURL(carrier, trackingNumber string) string {
	number := strings.ReplaceAll(strings.TrimSpace(trackingNumber), "-", "")
	if number == "" {
		return ""
	}

	escaped := url.QueryEscape(number)
	switch NormalizeCarrier(carrier) {
	case CarrierCJ:
		return "https://trace.cjlogistics.com/next/tracking.html?wblNo=" + escaped
	case CarrierHanjin:
		return "https://www.hanjin.com/kor/CMS/DeliveryMgr/WaybillResult.do?mCode=MN038&schLang=KR&wblnum=" + escaped
	case CarrierLotte:
		return "https://www.lotteglogis.com/home/reservation/tracking/linkView?InvNo=" + escaped
	case CarrierEpost:
		return "https://service.epost.go.kr/trace.RetrieveDomRigiTraceList.comm?sid1=" + escaped
	case CarrierLogen:
		return "https://www.ilogen.com/web/personal/trace/" + url.PathEscape(number)
	default:
		return ""
	}
}

type shippingStore interface {
	Create(ctx context.Context, info *models.ShippingInfo) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.ShippingInfo, error)
	Update(ctx context.Context, id uuid.UUID, update models.ShippingUpdate) (*models.ShippingInfo, error)
}

type ShippingService struct {
	store    shippingStore
	orders   orderReader
	statuses OrderStatusUpdater
	logger   *slog.Logger
	now      func() time.Time
}

func NewShippingService(store shippingStore, orders orderReader, statuses OrderStatusUpdater, logger *slog.Logger) *ShippingService {
	return &ShippingService{store: store, orders: orders, statuses: statuses, logger: logger, now: time.Now}
}

func (s *ShippingService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CreateShippingInput struct {
	OrderID        uuid.UUID `json:"orderId"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"trackingNumber"`
}

type UpdateShippingInput struct {
	ID             uuid.UUID              `json:"id"`
	Carrier        *string                `json:"carrier"`
	TrackingNumber *string                `json:"trackingNumber"`
	Status         *models.ShippingStatus `json:"status"`
}

type ShippingResult struct {
	Shipping           *models.ShippingInfo `json:"shipping"`
	OrderStatusUpdated bool                 `json:"orderStatusUpdated"`
}

func (s *ShippingService) Get(ctx context.Context, orderID uuid.UUID) (*models.ShippingInfo, error) {
	info, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "shipping", "get shipping")
	}
	return decorateShipping(info), nil
}

// Create records the tracking number of an order and moves the order to shipped.
func (s *ShippingService) Create(ctx context.Context, input CreateShippingInput) (*ShippingResult, error) {
	carrier := canonicalCarrier(input.Carrier)
	number := strings.TrimSpace(input.TrackingNumber)
	if input.OrderID == uuid.Nil || carrier == "" || number == "" {
		return nil, invalid("orderId, carrier and trackingNumber are required")
	}

	if _, err := s.orders.GetByID(ctx, input.OrderID); err != nil {
		return nil, storeError(err, "order", "get order")
	}

	shippedAt := s.now().UTC()
	info := &models.ShippingInfo{
		OrderID:        input.OrderID,
		Carrier:        carrier,
		TrackingNumber: number,
		Status:         models.ShippingInTransit,
		ShippedAt:      &shippedAt,
	}
	if err := s.store.Create(ctx, info); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflict("shipping is already registered for this order")
		}
		return nil, storeError(err, "shipping", "create shipping")
	}
	s.loggerFromContext(ctx).Info("shipment registered", "order_id", input.OrderID, "carrier", carrier)

	return &ShippingResult{
		Shipping:           decorateShipping(info),
		OrderStatusUpdated: s.moveOrder(ctx, input.OrderID, models.StatusShipped),
	}, nil
}

// Update edits tracking details. Marking the shipment delivered moves the order too.
func (s *ShippingService) Update(ctx context.Context, input UpdateShippingInput) (*ShippingResult, error) {
	if input.ID == uuid.Nil {
		return nil, invalid("id is required")
	}
	update := models.ShippingUpdate{Status: input.Status}
	if input.Carrier != nil {
		carrier := canonicalCarrier(*input.Carrier)
		if carrier == "" {
			return nil, invalid("carrier cannot be empty")
		}
		update.Carrier = &carrier
	}
	if input.TrackingNumber != nil {
		number := strings.TrimSpace(*input.TrackingNumber)
		if number == "" {
			return nil, invalid("trackingNumber cannot be empty")
		}
		update.TrackingNumber = &number
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, invalid("unknown shipping status: %s", *input.Status)
		}
		if *input.Status == models.ShippingDelivered {
			deliveredAt := s.now().UTC()
			update.DeliveredAt = &deliveredAt
		}
	}

	info, err := s.store.Update(ctx, input.ID, update)
	if err != nil {
		return nil, storeError(err, "shipping", "update shipping")
	}

	out := &ShippingResult{Shipping: decorateShipping(info)}
	if input.Status != nil && *input.Status == models.ShippingDelivered {
		out.OrderStatusUpdated = s.moveOrder(ctx, info.OrderID, models.StatusDelivered)
	}
	return out, nil
}

func (s *ShippingService) moveOrder(ctx context.Context, orderID uuid.UUID, next models.OrderStatus) bool {
	if s.statuses == nil {
		return false
	}
	if _, err := s.statuses.UpdateStatus(ctx, orderID, next, nil); err != nil {
		s.loggerFromContext(ctx).Warn("failed to move order with shipment", "error", err, "order_id", orderID, "status", next)
		return false
	}
	return true
}

func canonicalCarrier(value string) string {
	if key := NormalizeCarrier(value); key != "" {
		return key
	}
	return strings.TrimSpace(value)
}

func decorateShipping(info *models.ShippingInfo) *models.ShippingInfo {
	if info == nil {
		return nil
	}
	info.CarrierName = CarrierName(info.Carrier)
	info.TrackingURL = BuildTrackingURL(info.Carrier, info.TrackingNumber)
	return info
}
