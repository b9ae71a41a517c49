package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/onceloved/storefront/internal/models"
)

var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrUnknownOptionValue = errors.New("unknown option value")
)

type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	OptionName  string
	ValueName   string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	if e.OptionName != "" {
		return fmt.Sprintf("insufficient stock for %s (%s: %s): %d available, %d requested",
			e.ProductName, e.OptionName, e.ValueName, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested",
		e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ApplyOptionStock decrements the stock of every selected option value that
// tracks its own quantity. It returns a copy of the options and whether any
// selected value carried stock. A selection naming an option the product does
// not define is ignored; a value the option does not define is an error.
func ApplyOptionStock(product *models.Product, selected map[string]models.SelectedOption, quantity int) ([]models.ProductOption, bool, error) {
	if len(selected) == 0 || len(product.Options) == 0 {
		return product.Options, false, nil
	}

	updated := cloneOptions(product.Options)
	tracked := false
	for i := range updated {
		option := &updated[i]
		choice, ok := selected[option.ID]
		if !ok {
			continue
		}

		value := findValue(option, choice.ValueID)
		if value == nil {
			return nil, false, fmt.Errorf("%w: %s has no value %q for option %s",
				ErrUnknownOptionValue, product.Name, choice.ValueID, option.ID)
		}
		if value.StockQuantity == nil {
			continue
		}

		tracked = true
		if *value.StockQuantity < quantity {
			return nil, false, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				OptionName:  displayName(option.Name, option.ID),
				ValueName:   displayName(value.Name, value.ID),
				Available:   *value.StockQuantity,
				Requested:   quantity,
			}
		}
		remaining := *value.StockQuantity - quantity
		value.StockQuantity = &remaining
	}

	return updated, tracked, nil
}

// RestoreOptionStock hands quantity back to every selected option value that
// tracks its own stock. Options or values removed from the product since the
// order was placed are skipped.
func RestoreOptionStock(product *models.Product, selected map[string]models.SelectedOption, quantity int) ([]models.ProductOption, bool) {
	if len(selected) == 0 || len(product.Options) == 0 {
		return product.Options, false
	}

	updated := cloneOptions(product.Options)
	tracked := false
	for i := range updated {
		option := &updated[i]
		choice, ok := selected[option.ID]
		if !ok {
			continue
		}
		value := findValue(option, choice.ValueID)
		if value == nil || value.StockQuantity == nil {
			continue
		}
		tracked = true
		restored := *value.StockQuantity + quantity
		value.StockQuantity = &restored
	}
	return updated, tracked
}

// CheckPlainStock reports an InsufficientStockError when stock cannot cover quantity.
func CheckPlainStock(product *models.Product, quantity int) error {
	if product.Stock < quantity {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   quantity,
		}
	}
	return nil
}

func findValue(option *models.ProductOption, valueID string) *models.OptionValue {
	for i := range option.Values {
		if option.Values[i].ID == valueID {
			return &option.Values[i]
		}
	}
	return nil
}

func cloneOptions(options []models.ProductOption) []models.ProductOption {
	cloned := make([]models.ProductOption, len(options))
	for i, option := range options {
		cloned[i] = models.ProductOption{ID: option.ID, Name: option.Name}
		cloned[i].Values = make([]models.OptionValue, len(option.Values))
		for j, value := range option.Values {
			cloned[i].Values[j] = value
			if value.StockQuantity != nil {
				qty := *value.StockQuantity
				cloned[i].Values[j].StockQuantity = &qty
			}
		}
	}
	return cloned
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
