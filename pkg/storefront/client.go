// Package storefront is a Go client for the shop API together with a Session
// that mirrors the signed-in user and their cart.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Product is a catalog entry as served by the API.
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Warning     string  `json:"warning,omitempty"`
	Category    string  `json:"category"`
}

// CartItem is a cart line. Product is nil when the server returned a bare
// reference (after a removal) or the product no longer exists; ProductID is
// always set when known.
type CartItem struct {
	ProductID string
	Product   *Product
	Quantity  int
}

// UnmarshalJSON accepts the product as an object, a bare ID string or null.
func (it *CartItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Product  json.RawMessage `json:"product"`
		Quantity int             `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*it = CartItem{Quantity: raw.Quantity}
	ref := bytes.TrimSpace(raw.Product)
	switch {
	case len(ref) == 0 || bytes.Equal(ref, []byte("null")):
	case ref[0] == '"':
		return json.Unmarshal(ref, &it.ProductID)
	default:
		var p Product
		if err := json.Unmarshal(ref, &p); err != nil {
			return errors.Wrap(err, "product")
		}
		it.Product = &p
		it.ProductID = p.ID
	}
	return nil
}

// Cart is the server-side cart of a user. ID is empty until the first item
// is added.
type Cart struct {
	ID    string     `json:"_id"`
	User  string     `json:"user"`
	Items []CartItem `json:"items"`
}

// User is a signed-in account with its bearer token.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// Client issues requests against the API rooted at baseURL, for example
// "https://shop.example.com/api".
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Products lists the catalog, narrowed to category when it is non-empty.
func (c *Client) Products(ctx context.Context, category string) ([]Product, error) {
	path := "/products"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var out []Product
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	var u User
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users", "", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for a signed-in user.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var u User
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users/login", "", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Cart fetches the cart of the token's owner.
func (c *Client) Cart(ctx context.Context, token string) (*Cart, error) {
	var out Cart
	if err := c.do(ctx, http.MethodGet, "/cart", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddToCart adds quantity units of productID and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, token, productID string, quantity int) (*Cart, error) {
	var out Cart
	body := map[string]any{"productId": productID, "quantity": quantity}
	if err := c.do(ctx, http.MethodPost, "/cart", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromCart removes productID and returns the updated cart, whose items
// carry product IDs only.
func (c *Client) RemoveFromCart(ctx context.Context, token, productID string) (*Cart, error) {
	var out Cart
	if err := c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(productID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
