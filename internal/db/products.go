package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onceloved/storefront/internal/models"
)

const productColumns = `id, name, description, brand, designer, category, condition,
	original_price, sale_price, price, stock, options, images, dimensions, materials,
	featured, is_active, created_at, updated_at`

type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	optionsJSON, err := json.Marshal(nonNilOptions(product.Options))
	if err != nil {
		return err
	}
	imagesJSON, err := json.Marshal(nonNilStrings(product.Images))
	if err != nil {
		return err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, description, brand, designer, category, condition,
			original_price, sale_price, price, stock, options, images, dimensions, materials,
			featured, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING `+productColumns,
		product.ID, product.Name, product.Description, product.Brand, product.Designer,
		string(product.Category), string(product.Condition), product.OriginalPrice,
		product.SalePrice, product.Price, product.Stock, optionsJSON, imagesJSON,
		product.Dimensions, product.Materials, product.Featured, product.IsActive,
	)

	created, err := scanProduct(row)
	if err != nil {
		return translate(err)
	}
	*product = *created
	return nil
}

func (s *ProductStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		return nil, translate(err)
	}
	return product, nil
}

// GetByIDs returns the products that exist, keyed by id. Missing ids are simply absent.
func (s *ProductStore) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	return byID, nil
}

// List applies the indexed filters in SQL. Price bounds are left to the caller.
func (s *ProductStore) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Category != "" {
		add("category = $%d", string(filter.Category))
	}
	if filter.Brand != "" {
		add("lower(brand) = lower($%d)", filter.Brand)
	}
	if filter.Condition != "" {
		add("condition = $%d", string(filter.Condition))
	}
	if filter.Featured != nil {
		add("featured = $%d", *filter.Featured)
	}
	if !filter.IncludeInactive {
		where = append(where, "is_active")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC NULLS LAST"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// Update applies a partial update and returns the stored product.
func (s *ProductStore) Update(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Brand != nil {
		set("brand", *patch.Brand)
	}
	if patch.Designer != nil {
		set("designer", *patch.Designer)
	}
	if patch.Category != nil {
		set("category", string(*patch.Category))
	}
	if patch.Condition != nil {
		set("condition", string(*patch.Condition))
	}
	if patch.OriginalPrice != nil {
		set("original_price", *patch.OriginalPrice)
	}
	if patch.SalePrice != nil {
		set("sale_price", *patch.SalePrice)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.Stock != nil {
		set("stock", *patch.Stock)
	}
	if patch.Options != nil {
		optionsJSON, err := json.Marshal(nonNilOptions(*patch.Options))
		if err != nil {
			return nil, err
		}
		set("options", optionsJSON)
	}
	if patch.Images != nil {
		imagesJSON, err := json.Marshal(nonNilStrings(*patch.Images))
		if err != nil {
			return nil, err
		}
		set("images", imagesJSON)
	}
	if patch.Dimensions != nil {
		set("dimensions", *patch.Dimensions)
	}
	if patch.Materials != nil {
		set("materials", *patch.Materials)
	}
	if patch.Featured != nil {
		set("featured", *patch.Featured)
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}

	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE products SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), productColumns)

	product, err := scanProduct(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate(err)
	}
	return product, nil
}

// ToggleActive flips is_active and returns the new value.
func (s *ProductStore) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool
	err := s.pool.QueryRow(ctx, `
		UPDATE products SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING is_active`, id).Scan(&active)
	if err != nil {
		return false, translate(err)
	}
	return active, nil
}

func (s *ProductStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(tag)
}

// DeleteMany removes every listed product and reports how many rows went away.
func (s *ProductStore) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectProducts(rows pgx.Rows) ([]*models.Product, error) {
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var (
		product     models.Product
		category    string
		condition   string
		optionsJSON []byte
		imagesJSON  []byte
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)

	if err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.Brand, &product.Designer,
		&category, &condition, &product.OriginalPrice, &product.SalePrice, &product.Price,
		&product.Stock, &optionsJSON, &imagesJSON, &product.Dimensions, &product.Materials,
		&product.Featured, &product.IsActive, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	product.Category = models.Category(category)
	product.Condition = models.Condition(condition)
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &product.Options); err != nil {
			return nil, fmt.Errorf("failed to decode product options: %w", err)
		}
	}
	product.Images = []string{}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &product.Images); err != nil {
			return nil, fmt.Errorf("failed to decode product images: %w", err)
		}
	}
	product.CreatedAt = timeOrNow(createdAt)
	product.UpdatedAt = timeOrNow(updatedAt)

	return &product, nil
}

func nonNilOptions(options []models.ProductOption) []models.ProductOption {
	if options == nil {
		return []models.ProductOption{}
	}
	return options
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
