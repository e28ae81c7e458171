package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/johnrirwin/devicedesk/internal/models"
	"github.com/johnrirwin/devicedesk/internal/products"
)

// ProductStore persists products in PostgreSQL
type ProductStore struct {
	db *DB
}

// NewProductStore creates a new product store
func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

const productColumns = `id, name, brand, model, price, description, image_url, tags, specs,
	in_stock, stock_count, category, created_at, updated_at`

// Create inserts a product
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	specs, err := json.Marshal(p.Specs)
	if err != nil {
		return fmt.Errorf("failed to encode specs: %w", err)
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Brand, p.Model, p.Price, p.Description, nullString(p.ImageURL),
		pq.Array(tagsOrEmpty(p.Tags)), specs, p.InStock, p.StockCount, nullString(p.Category),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Get retrieves a product by ID
func (s *ProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, products.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// Update overwrites every mutable column of a product
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	specs, err := json.Marshal(p.Specs)
	if err != nil {
		return fmt.Errorf("failed to encode specs: %w", err)
	}

	query := `
		UPDATE products SET
			name = $2, brand = $3, model = $4, price = $5, description = $6, image_url = $7,
			tags = $8, specs = $9, in_stock = $10, stock_count = $11, category = $12, updated_at = $13
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Brand, p.Model, p.Price, p.Description, nullString(p.ImageURL),
		pq.Array(tagsOrEmpty(p.Tags)), specs, p.InStock, p.StockCount, nullString(p.Category),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireRow(res)
}

// Delete removes a product
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return requireRow(res)
}

// List returns all products in insertion order
func (s *ProductStore) List(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	var imageURL, category sql.NullString
	var specs []byte
	var tags []string

	err := row.Scan(
		&p.ID, &p.Name, &p.Brand, &p.Model, &p.Price, &p.Description, &imageURL,
		pq.Array(&tags), &specs, &p.InStock, &p.StockCount, &category,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ImageURL = imageURL.String
	p.Category = category.String
	p.Tags = tagsOrEmpty(tags)
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.Specs); err != nil {
			return nil, fmt.Errorf("failed to decode specs: %w", err)
		}
	}
	// Rows written by older tooling may disagree; the count is authoritative
	p.SetStock(p.StockCount)
	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return products.ErrNotFound
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

var _ products.Store = (*ProductStore)(nil)
