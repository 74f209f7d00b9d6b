package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/jokeshop/internal/domain/product"
)

// maxAttempts bounds the read-modify-write loop when concurrent writers keep
// bumping the cart version.
const maxAttempts = 5

// InvalidQuantityError indicates a non-positive quantity was requested.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %s, got %d", e.ProductID, e.Quantity)
}

// Option configures a Service.
type Option func(*Service)

// WithMeter records cart mutation counters on the given meter.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.meter = m
	}
}

// Service maintains the single cart per user and its line items.
type Service struct {
	carts    Repository
	products product.Repository

	meter     metric.Meter
	added     metric.Int64Counter
	removed   metric.Int64Counter
	conflicts metric.Int64Counter
}

// NewService creates a cart Service backed by the given repositories.
func NewService(carts Repository, products product.Repository, opts ...Option) (*Service, error) {
	s := &Service{
		carts:    carts,
		products: products,
		meter:    noop.NewMeterProvider().Meter(""),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.added, err = s.meter.Int64Counter("cart.items.added",
		metric.WithDescription("Units added to carts"),
	); err != nil {
		return nil, errors.Wrap(err, "added counter")
	}
	if s.removed, err = s.meter.Int64Counter("cart.items.removed",
		metric.WithDescription("Line items removed from carts"),
	); err != nil {
		return nil, errors.Wrap(err, "removed counter")
	}
	if s.conflicts, err = s.meter.Int64Counter("cart.write.conflicts",
		metric.WithDescription("Cart writes retried after a concurrent modification"),
	); err != nil {
		return nil, errors.Wrap(err, "conflicts counter")
	}
	return s, nil
}

// GetCart returns the user's cart with products resolved. A user without a
// cart gets an empty cart with no ID.
func (s *Service) GetCart(ctx context.Context, userID string) (*ResolvedCart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ResolvedCart{UserID: userID, Items: []ResolvedItem{}}, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return s.Resolve(ctx, c)
}

// AddItem adds quantity units of productID to the user's cart, creating the
// cart on first use. Adding a product already present increments its
// quantity, failing with ErrQuantityTooLarge if the sum would overflow. The
// product is not checked for existence.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*ResolvedCart, error) {
	if quantity < 1 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}

	var overflow bool
	c, err := s.mutate(ctx, userID, true, func(c *Cart) bool {
		if overflow = !c.CanAdd(productID, quantity); overflow {
			return false
		}
		c.Add(productID, quantity)
		return true
	})
	if err != nil {
		return nil, err
	}
	if overflow {
		return nil, ErrQuantityTooLarge
	}
	s.added.Add(ctx, int64(quantity))

	return s.Resolve(ctx, c)
}

// RemoveItem drops productID from the user's cart. Removing a product that is
// not in the cart leaves it unchanged. It returns ErrNotFound when the user
// has no cart. The returned cart is not resolved.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	var removed bool
	c, err := s.mutate(ctx, userID, false, func(c *Cart) bool {
		removed = c.Remove(productID)
		return removed
	})
	if err != nil {
		return nil, err
	}
	if removed {
		s.removed.Add(ctx, 1)
	}
	return c, nil
}

// mutate runs a read-modify-write cycle on the user's cart. apply reports
// whether it changed the cart; unchanged carts are not written. When create
// is set a missing cart is created with apply's result, otherwise
// ErrNotFound is returned.
func (s *Service) mutate(ctx context.Context, userID string, create bool, apply func(*Cart) bool) (*Cart, error) {
	for range maxAttempts {
		c, err := s.carts.Get(ctx, userID)
		switch {
		case errors.Is(err, ErrNotFound):
			if !create {
				return nil, ErrNotFound
			}
			c = &Cart{UserID: userID}
			apply(c)
			err = s.carts.Create(ctx, c)
		case err != nil:
			return nil, errors.Wrap(err, "get cart")
		default:
			if !apply(c) {
				return c, nil
			}
			err = s.carts.Update(ctx, c)
		}

		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, errors.Wrap(err, "save cart")
		}
		s.conflicts.Add(ctx, 1)
	}
	return nil, ErrConflict
}

// Resolve joins every item of c with its product in a single batch lookup.
func (s *Service) Resolve(ctx context.Context, c *Cart) (*ResolvedCart, error) {
	ids := make([]string, 0, len(c.Items))
	seen := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}

	byID := make(map[string]*product.Product, len(ids))
	if len(ids) > 0 {
		fetched, err := s.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "get products")
		}
		for i := range fetched {
			byID[fetched[i].ID] = &fetched[i]
		}
	}

	items := make([]ResolvedItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = ResolvedItem{
			ProductID: it.ProductID,
			Product:   byID[it.ProductID],
			Quantity:  it.Quantity,
		}
	}

	return &ResolvedCart{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     items,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}
