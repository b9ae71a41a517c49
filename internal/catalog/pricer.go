package catalog

import "github.com/onceloved/storefront/internal/models"

const (
	DefaultFreeShippingThreshold int64 = 50000
	DefaultFlatShippingFee       int64 = 2500
)

// Pricer computes order amounts in KRW.
type Pricer struct {
	freeThreshold int64
	flatFee       int64
}

func NewPricer(freeThreshold, flatFee int64) *Pricer {
	if freeThreshold <= 0 {
		freeThreshold = DefaultFreeShippingThreshold
	}
	if flatFee < 0 {
		flatFee = DefaultFlatShippingFee
	}
	return &Pricer{freeThreshold: freeThreshold, flatFee: flatFee}
}

type Totals struct {
	TotalAmount int64
	ShippingFee int64
	FinalAmount int64
}

// UnitPrice resolves the authoritative price of one unit: sale price, then the
// generic price, then whatever the client submitted.
func (p *Pricer) UnitPrice(product *models.Product, clientPrice int64) int64 {
	if product != nil {
		if product.SalePrice > 0 {
			return product.SalePrice
		}
		if product.Price > 0 {
			return product.Price
		}
	}
	return clientPrice
}

func (p *Pricer) ShippingFee(totalAmount int64) int64 {
	if totalAmount >= p.freeThreshold {
		return 0
	}
	return p.flatFee
}

func (p *Pricer) Totals(items []models.OrderItem) Totals {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	fee := p.ShippingFee(total)
	return Totals{TotalAmount: total, ShippingFee: fee, FinalAmount: total + fee}
}

// ListPrice is the price a shopper sees: sale price, falling back to the generic price.
func ListPrice(product *models.Product) int64 {
	if product == nil {
		return 0
	}
	if product.SalePrice > 0 {
		return product.SalePrice
	}
	return product.Price
}
