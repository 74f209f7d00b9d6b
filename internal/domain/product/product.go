package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Description string
	Image       string
	// Warning is optional safety text shown next to the product.
	Warning   string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows a catalog listing. The zero value matches every product.
type Filter struct {
	// Category, when set, must equal the product category exactly.
	Category string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs returns the products that exist among ids. Unknown ids are
	// skipped rather than reported.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Writer upserts catalog entries. It is used by offline seeding only.
type Writer interface {
	Upsert(ctx context.Context, p Product) (string, error)
}
