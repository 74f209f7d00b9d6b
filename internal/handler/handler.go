package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xenking/jokeshop/internal/domain/cart"
	"github.com/xenking/jokeshop/internal/domain/product"
	"github.com/xenking/jokeshop/internal/domain/user"
)

// TokenVerifier resolves a bearer token to the user ID it was issued for.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler serves the storefront REST API, delegating business logic to the
// cart and user services and the product repository.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	users    *user.Service
	accounts user.Repository
	tokens   TokenVerifier

	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	carts *cart.Service,
	users *user.Service,
	accounts user.Repository,
	tokens TokenVerifier,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		users:        users,
		accounts:     accounts,
		tokens:       tokens,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes mounts the API under /api.
func (h *Handler) Routes(r gin.IRouter) {
	api := r.Group("/api")

	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)

	api.POST("/users", h.RegisterUser)
	api.POST("/users/login", h.Login)

	carts := api.Group("/cart", h.Authenticate)
	carts.GET("", h.GetCart)
	carts.POST("", h.AddToCart)
	carts.DELETE("/:productId", h.RemoveFromCart)
}
