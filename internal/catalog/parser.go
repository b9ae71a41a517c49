package catalog

// Package catalog provides product seed parsing, validation and pricing.

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/onceloved/storefront/internal/models"
)

type SeedFile struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	Name          string       `yaml:"name"`
	Description   string       `yaml:"description"`
	Brand         string       `yaml:"brand"`
	Designer      string       `yaml:"designer"`
	Category      string       `yaml:"category"`
	Condition     string       `yaml:"condition"`
	OriginalPrice int64        `yaml:"original_price"`
	SalePrice     int64        `yaml:"sale_price"`
	Stock         int          `yaml:"stock"`
	Images        []string     `yaml:"images"`
	Dimensions    string       `yaml:"dimensions"`
	Materials     string       `yaml:"materials"`
	Featured      bool         `yaml:"featured"`
	Inactive      bool         `yaml:"inactive"`
	Options       []SeedOption `yaml:"options"`
}

type SeedOption struct {
	ID     string            `yaml:"id"`
	Name   string            `yaml:"name"`
	Values []SeedOptionValue `yaml:"values"`
}

type SeedOptionValue struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	StockQuantity *int   `yaml:"stock_quantity"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(content, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &seed, nil
}

func (p *Parser) ParseFromString(content string) (*SeedFile, error) {
	return p.Parse([]byte(content))
}

// Product converts a seed entry into a catalog product without an id.
func (s SeedProduct) Product() *models.Product {
	product := &models.Product{
		Name:          s.Name,
		Description:   s.Description,
		Brand:         s.Brand,
		Designer:      s.Designer,
		Category:      models.Category(s.Category),
		Condition:     models.Condition(s.Condition),
		OriginalPrice: s.OriginalPrice,
		SalePrice:     s.SalePrice,
		Stock:         s.Stock,
		Images:        s.Images,
		Dimensions:    s.Dimensions,
		Materials:     s.Materials,
		Featured:      s.Featured,
		IsActive:      !s.Inactive,
	}
	if product.Images == nil {
		product.Images = []string{}
	}
	for _, option := range s.Options {
		converted := models.ProductOption{ID: option.ID, Name: option.Name}
		for _, value := range option.Values {
			converted.Values = append(converted.Values, models.OptionValue{
				ID:            value.ID,
				Name:          value.Name,
				StockQuantity: value.StockQuantity,
			})
		}
		product.Options = append(product.Options, converted)
	}
	return product
}
