package cart

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/jokeshop/internal/domain/product"
)

var (
	// ErrNotFound is returned when the user has no cart yet.
	ErrNotFound = errors.New("cart not found")
	// ErrConflict is returned when a cart was modified concurrently, either by
	// a version mismatch on update or by a second cart being created for the
	// same user.
	ErrConflict = errors.New("cart modified concurrently")
	// ErrQuantityTooLarge is returned when merging a quantity into an existing
	// item would overflow it.
	ErrQuantityTooLarge = errors.New("cart item quantity too large")
)

// Cart is the single per-user collection of product references.
type Cart struct {
	ID     string
	UserID string
	Items  []Item
	// Version is incremented on every successful write and compared on update.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a product reference with a quantity of at least one.
type Item struct {
	ProductID string
	Quantity  int
}

// Find returns the index of the item referencing productID, or -1.
func (c *Cart) Find(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// CanAdd reports whether quantity units of productID can be merged into the
// cart without overflowing the item's quantity.
func (c *Cart) CanAdd(productID string, quantity int) bool {
	i := c.Find(productID)
	return i < 0 || c.Items[i].Quantity <= math.MaxInt-quantity
}

// Add merges quantity into an existing item for productID or appends a new
// item when the product is not in the cart yet.
func (c *Cart) Add(productID string, quantity int) {
	if i := c.Find(productID); i >= 0 {
		c.Items[i].Quantity += quantity
		return
	}
	c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity})
}

// Remove drops the item referencing productID and reports whether anything
// was removed.
func (c *Cart) Remove(productID string) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// ResolvedCart is a cart whose items carry full product data.
type ResolvedCart struct {
	ID        string
	UserID    string
	Items     []ResolvedItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResolvedItem is a line item joined with its product. Product is nil when
// the referenced product does not exist.
type ResolvedItem struct {
	ProductID string
	Product   *product.Product
	Quantity  int
}

// Repository defines persistence operations for carts.
type Repository interface {
	// Get returns the cart owned by userID or ErrNotFound.
	Get(ctx context.Context, userID string) (*Cart, error)
	// Create stores a new cart, filling in its ID and timestamps. It returns
	// ErrConflict when the user already owns a cart.
	Create(ctx context.Context, c *Cart) error
	// Update replaces the items of an existing cart if its stored version
	// still equals c.Version, then bumps c.Version. A mismatch yields
	// ErrConflict.
	Update(ctx context.Context, c *Cart) error
}
