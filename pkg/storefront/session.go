package storefront

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrSignedOut is returned by cart operations when no user is signed in.
var ErrSignedOut = errors.New("storefront: not signed in")

// Session holds the signed-in user and a mirror of their cart. Every cart
// mutation replaces the mirror with the server's answer; nothing is merged
// locally. Signing out clears both, and responses to requests issued before
// the sign-out are discarded.
type Session struct {
	client *Client

	mu   sync.RWMutex
	user *User
	cart *Cart
	// epoch changes whenever the signed-in identity changes.
	epoch uint64
}

// NewSession creates a signed-out Session.
func NewSession(c *Client) *Session {
	return &Session{client: c}
}

// Register creates an account, signs it in and loads its cart.
func (s *Session) Register(ctx context.Context, name, email, password string) error {
	u, err := s.client.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	return s.Resume(ctx, *u)
}

// Login signs a user in and loads their cart.
func (s *Session) Login(ctx context.Context, email, password string) error {
	u, err := s.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.Resume(ctx, *u)
}

// Resume signs in a previously persisted user and loads their cart. The user
// stays signed in when the cart cannot be loaded.
func (s *Session) Resume(ctx context.Context, u User) error {
	s.mu.Lock()
	s.user = &u
	s.cart = nil
	s.epoch++
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// Logout forgets the user and the cart.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.cart = nil
	s.epoch++
}

// User returns the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Cart returns a copy of the cart mirror, or nil when it was never loaded.
func (s *Session) Cart() *Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cart == nil {
		return nil
	}
	c := *s.cart
	c.Items = append([]CartItem(nil), s.cart.Items...)
	return &c
}

// Refresh reloads the cart mirror from the server.
func (s *Session) Refresh(ctx context.Context) error {
	return s.apply(func(token string) (*Cart, error) {
		return s.client.Cart(ctx, token)
	})
}

// AddToCart adds quantity units of productID.
func (s *Session) AddToCart(ctx context.Context, productID string, quantity int) error {
	return s.apply(func(token string) (*Cart, error) {
		return s.client.AddToCart(ctx, token, productID, quantity)
	})
}

// RemoveFromCart removes productID. The mirror then holds product IDs
// without details until the next Refresh.
func (s *Session) RemoveFromCart(ctx context.Context, productID string) error {
	return s.apply(func(token string) (*Cart, error) {
		return s.client.RemoveFromCart(ctx, token, productID)
	})
}

// apply runs a cart request as the current user and stores its result,
// unless the identity changed while the request was in flight.
func (s *Session) apply(call func(token string) (*Cart, error)) error {
	s.mu.RLock()
	if s.user == nil {
		s.mu.RUnlock()
		return ErrSignedOut
	}
	token, epoch := s.user.Token, s.epoch
	s.mu.RUnlock()

	c, err := call(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.cart = c
	return nil
}
