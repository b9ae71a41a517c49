package catalog

import (
	"fmt"
	"strings"

	"github.com/onceloved/storefront/internal/models"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateSeed(seed *SeedFile) error {
	if len(seed.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	names := make(map[string]bool)
	for i, entry := range seed.Products {
		if err := v.ValidateProduct(entry.Product()); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		key := strings.ToLower(strings.TrimSpace(entry.Brand + "/" + entry.Name))
		if names[key] {
			return fmt.Errorf("duplicate product: %s", entry.Name)
		}
		names[key] = true
	}

	return nil
}

// ValidateProduct checks a full product record before it is created.
func (v *Validator) ValidateProduct(product *models.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	if product.Category != "" && !IsKnownCategory(product.Category) {
		return fmt.Errorf("unknown category: %s", product.Category)
	}

	if product.Condition != "" && !IsKnownCondition(product.Condition) {
		return fmt.Errorf("unknown condition: %s", product.Condition)
	}

	if product.OriginalPrice < 0 || product.SalePrice < 0 || product.Price < 0 {
		return fmt.Errorf("product prices must be zero or positive")
	}

	if product.SalePrice == 0 && product.Price == 0 {
		return fmt.Errorf("product sale price must be positive")
	}

	if product.Stock < 0 {
		return fmt.Errorf("product stock must be zero or positive")
	}

	return v.ValidateOptions(product.Options)
}

func (v *Validator) ValidateOptions(options []models.ProductOption) error {
	optionIDs := make(map[string]bool)
	for i, option := range options {
		if err := v.validateOption(option); err != nil {
			return fmt.Errorf("option %d validation failed: %w", i, err)
		}

		if optionIDs[option.ID] {
			return fmt.Errorf("duplicate option id: %s", option.ID)
		}
		optionIDs[option.ID] = true
	}

	return nil
}

func (v *Validator) validateOption(option models.ProductOption) error {
	if strings.TrimSpace(option.ID) == "" {
		return fmt.Errorf("option id is required")
	}

	if len(option.Values) == 0 {
		return fmt.Errorf("option values cannot be empty")
	}

	valueIDs := make(map[string]bool)
	for _, value := range option.Values {
		if strings.TrimSpace(value.ID) == "" {
			return fmt.Errorf("option value id is required")
		}
		if value.StockQuantity != nil && *value.StockQuantity < 0 {
			return fmt.Errorf("option value %s stock must be zero or positive", value.ID)
		}
		if valueIDs[value.ID] {
			return fmt.Errorf("duplicate option value id: %s", value.ID)
		}
		valueIDs[value.ID] = true
	}

	return nil
}
