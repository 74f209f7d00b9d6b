package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/jokeshop/internal/domain/product"
)

const (
	productColumns = `id, name, price, description, image, warning, category, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE $1 = '' OR category = $1 ORDER BY created_at, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	upsertProductByIDSQL = `INSERT INTO products (id, name, price, description, image, warning, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price, description = EXCLUDED.description,
			image = EXCLUDED.image, warning = EXCLUDED.warning, category = EXCLUDED.category,
			updated_at = now()
		RETURNING id`

	upsertProductByNameSQL = `INSERT INTO products (id, name, price, description, image, warning, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			price = EXCLUDED.price, description = EXCLUDED.description,
			image = EXCLUDED.image, warning = EXCLUDED.warning, category = EXCLUDED.category,
			updated_at = now()
		RETURNING id`
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns catalog products, optionally restricted to one category.
func (r *ProductRepository) List(ctx context.Context, filter product.Filter) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, filter.Category)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %q", id)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or updates a catalog entry keyed by id, or by name when the
// product has no id yet.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) (string, error) {
	query := upsertProductByIDSQL
	id := p.ID
	if id == "" {
		query = upsertProductByNameSQL
		id = uuid.NewString()
	}

	var stored string
	err := r.pool.QueryRow(ctx, query,
		id, p.Name, p.Price, p.Description, p.Image, p.Warning, p.Category,
	).Scan(&stored)
	if err != nil {
		return "", errors.Wrapf(err, "upserting product %q", p.Name)
	}
	return stored, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.Warning, &p.Category,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
