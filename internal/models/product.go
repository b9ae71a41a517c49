package models

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategorySofa     Category = "sofa"
	CategoryChair    Category = "chair"
	CategoryTable    Category = "table"
	CategoryLighting Category = "lighting"
	CategoryStorage  Category = "storage"
	CategoryBed      Category = "bed"
	CategoryDecor    Category = "decor"
)

type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionLikeNew   Condition = "like_new"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
)

type Product struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Brand          string          `json:"brand"`
	BrandLabel     string          `json:"brandLabel,omitempty"`
	Designer       string          `json:"designer,omitempty"`
	Category       Category        `json:"category"`
	CategoryLabel  string          `json:"categoryLabel,omitempty"`
	Condition      Condition       `json:"condition"`
	ConditionLabel string          `json:"conditionLabel,omitempty"`
	OriginalPrice  int64           `json:"originalPrice"`
	SalePrice      int64           `json:"salePrice"`
	Price          int64           `json:"price,omitempty"`
	Stock          int             `json:"stock"`
	Options        []ProductOption `json:"options,omitempty"`
	Images         []string        `json:"images"`
	Dimensions     string          `json:"dimensions,omitempty"`
	Materials      string          `json:"materials,omitempty"`
	Featured       bool            `json:"featured"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ProductOption is a selectable axis (size, fabric, ...) of a product.
type ProductOption struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

// OptionValue carries its own stock when StockQuantity is set.
type OptionValue struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	StockQuantity *int   `json:"stockQuantity,omitempty"`
}

// ProductPatch holds a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Brand         *string          `json:"brand"`
	Designer      *string          `json:"designer"`
	Category      *Category        `json:"category"`
	Condition     *Condition       `json:"condition"`
	OriginalPrice *int64           `json:"originalPrice"`
	SalePrice     *int64           `json:"salePrice"`
	Price         *int64           `json:"price"`
	Stock         *int             `json:"stock"`
	Options       *[]ProductOption `json:"options"`
	Images        *[]string        `json:"images"`
	Dimensions    *string          `json:"dimensions"`
	Materials     *string          `json:"materials"`
	Featured      *bool            `json:"featured"`
	IsActive      *bool            `json:"isActive"`
}

// ProductFilter narrows a catalog listing. Price bounds are applied after the query.
type ProductFilter struct {
	Category        Category
	Brand           string
	Condition       Condition
	Featured        *bool
	MinPrice        int64
	MaxPrice        int64
	IncludeInactive bool
}
