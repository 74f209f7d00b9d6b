package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/xenking/jokeshop/internal/domain/product"
)

type productResponse struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Warning     string    `json:"warning,omitempty"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListProducts returns the catalog, optionally narrowed to one category.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context(), product.Filter{
		Category: c.Query("category"),
	})
	if err != nil {
		h.fail(c, errors.Wrap(err, "list products"))
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toProductResponse(p)
	}
	c.JSON(http.StatusOK, out)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, errors.Wrap(err, "get product"))
		return
	}
	c.JSON(http.StatusOK, h.toProductResponse(*p))
}

// toProductResponse converts a domain product into its wire form. Relative
// image paths are prefixed with the configured imageBaseURL.
func (h *Handler) toProductResponse(p product.Product) productResponse {
	image := p.Image
	if h.imageBaseURL != "" && image != "" && !strings.Contains(image, "://") {
		image = strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(image, "/")
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.InexactFloat64(),
		Description: p.Description,
		Image:       image,
		Warning:     p.Warning,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
