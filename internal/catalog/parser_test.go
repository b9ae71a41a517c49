package catalog

import (
	"os"
	"testing"
)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid seed",
			yaml: `
products:
  - name: "Eames Lounge Chair"
    description: "Walnut shell, black leather"
    brand: "herman-miller"
    category: "chair"
    condition: "excellent"
    original_price: 9800000
    sale_price: 6200000
    stock: 1
    images: ["https://res.cloudinary.com/demo/eames.jpg"]
    options:
      - id: "leather"
        name: "Leather"
        values:
          - id: "black"
            name: "Black"
            stock_quantity: 1
`,
			wantErr: false,
		},
		{
			name:    "invalid yaml",
			yaml:    "invalid: yaml: content:",
			wantErr: true,
		},
	}

	parser := NewParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := parser.ParseFromString(tt.yaml)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(seed.Products) != 1 {
				t.Fatalf("expected 1 product, got %d", len(seed.Products))
			}

			product := seed.Products[0].Product()
			if product.Name != "Eames Lounge Chair" {
				t.Errorf("expected name 'Eames Lounge Chair', got '%s'", product.Name)
			}
			if !product.IsActive {
				t.Error("expected seeded product to be active")
			}
			if len(product.Options) != 1 || product.Options[0].Values[0].StockQuantity == nil {
				t.Fatalf("expected option stock to survive conversion, got %+v", product.Options)
			}
			if *product.Options[0].Values[0].StockQuantity != 1 {
				t.Errorf("expected option stock 1, got %d", *product.Options[0].Values[0].StockQuantity)
			}
		})
	}
}

func TestBundledSeedCatalog(t *testing.T) {
	content, err := os.ReadFile("../../testdata/catalog.yaml")
	if err != nil {
		t.Fatalf("failed to read seed catalog: %v", err)
	}

	seed, err := NewParser().Parse(content)
	if err != nil {
		t.Fatalf("failed to parse seed catalog: %v", err)
	}
	if err := NewValidator().ValidateSeed(seed); err != nil {
		t.Fatalf("seed catalog is invalid: %v", err)
	}
	if len(seed.Products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(seed.Products))
	}
}
