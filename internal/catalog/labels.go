package catalog

import (
	"strings"

	"github.com/onceloved/storefront/internal/models"
)

var categoryLabels = map[models.Category]string{
	models.CategorySofa:     "소파",
	models.CategoryChair:    "체어",
	models.CategoryTable:    "테이블",
	models.CategoryLighting: "조명",
	models.CategoryStorage:  "수납",
	models.CategoryBed:      "침대",
	models.CategoryDecor:    "소품",
}

var conditionLabels = map[models.Condition]string{
	models.ConditionNew:       "새상품",
	models.ConditionLikeNew:   "거의 새것",
	models.ConditionExcellent: "매우 좋음",
	models.ConditionGood:      "좋음",
	models.ConditionFair:      "보통",
}

var brandLabels = map[string]string{
	"herman-miller":  "Herman Miller",
	"vitra":          "Vitra",
	"knoll":          "Knoll",
	"fritz-hansen":   "Fritz Hansen",
	"carl-hansen":    "Carl Hansen & Søn",
	"louis-poulsen":  "Louis Poulsen",
	"flos":           "Flos",
	"cassina":        "Cassina",
	"usm":            "USM Haller",
	"hay":            "HAY",
	"muuto":          "Muuto",
	"artek":          "Artek",
	"string":         "String",
	"b-and-b-italia": "B&B Italia",
}

func IsKnownCategory(category models.Category) bool {
	_, ok := categoryLabels[category]
	return ok
}

func IsKnownCondition(condition models.Condition) bool {
	_, ok := conditionLabels[condition]
	return ok
}

// CategoryLabel returns the display name, or the raw value when unmapped.
func CategoryLabel(category models.Category) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return string(category)
}

func ConditionLabel(condition models.Condition) string {
	if label, ok := conditionLabels[condition]; ok {
		return label
	}
	return string(condition)
}

func BrandLabel(brand string) string {
	if label, ok := brandLabels[strings.ToLower(strings.TrimSpace(brand))]; ok {
		return label
	}
	return brand
}

// Decorate fills the display labels of a product in place.
func Decorate(product *models.Product) *models.Product {
	if product == nil {
		return nil
	}
	product.CategoryLabel = CategoryLabel(product.Category)
	product.ConditionLabel = ConditionLabel(product.Condition)
	product.BrandLabel = BrandLabel(product.Brand)
	return product
}
