package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/jokeshop/internal/domain/cart"
)

const (
	getCartSQL = `SELECT id, user_id, items, version, created_at, updated_at
		FROM carts WHERE user_id = $1`

	createCartSQL = `INSERT INTO carts (id, user_id, items, version)
		VALUES ($1, $2, $3, 1)
		RETURNING created_at, updated_at`

	updateCartSQL = `UPDATE carts SET items = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
		RETURNING updated_at`
)

var _ cart.Repository = (*CartRepository)(nil)

// cartItemJSON is the JSONB shape of a cart line item.
type cartItemJSON struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the cart owned by userID.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	var (
		c     cart.Cart
		items []byte
	)
	err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(
		&c.ID, &c.UserID, &items, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting cart of user %q", userID)
	}

	var decoded []cartItemJSON
	if err := json.Unmarshal(items, &decoded); err != nil {
		return nil, errors.Wrapf(err, "decoding items of cart %q", c.ID)
	}
	c.Items = make([]cart.Item, len(decoded))
	for i, it := range decoded {
		c.Items[i] = cart.Item{ProductID: it.Product, Quantity: it.Quantity}
	}
	return &c, nil
}

// Create inserts a new cart at version 1. The unique user_id constraint turns
// a concurrent second insert into cart.ErrConflict.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	items, err := marshalItems(c.Items)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	err = r.pool.QueryRow(ctx, createCartSQL, id, c.UserID, items).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return cart.ErrConflict
		}
		return errors.Wrapf(err, "creating cart of user %q", c.UserID)
	}

	c.ID = id
	c.Version = 1
	return nil
}

// Update writes the items of c if the stored version still matches.
func (r *CartRepository) Update(ctx context.Context, c *cart.Cart) error {
	items, err := marshalItems(c.Items)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, updateCartSQL, items, c.ID, c.Version).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.ErrConflict
		}
		return errors.Wrapf(err, "updating cart %q", c.ID)
	}

	c.Version++
	return nil
}

func marshalItems(items []cart.Item) ([]byte, error) {
	out := make([]cartItemJSON, len(items))
	for i, it := range items {
		out[i] = cartItemJSON{Product: it.ProductID, Quantity: it.Quantity}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling cart items")
	}
	return data, nil
}
