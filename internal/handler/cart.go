package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xenking/jokeshop/internal/domain/cart"
)

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity" binding:"omitempty,min=1"`
}

type cartResponse struct {
	ID        string             `json:"_id,omitempty"`
	User      string             `json:"user,omitempty"`
	Items     []cartItemResponse `json:"items"`
	CreatedAt *time.Time         `json:"createdAt,omitempty"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

// cartItemResponse carries the resolved product, or null when the
// referenced product no longer exists.
type cartItemResponse struct {
	Product  *productResponse `json:"product"`
	Quantity int              `json:"quantity"`
}

// cartRefResponse is a cart whose items hold bare product IDs.
type cartRefResponse struct {
	ID        string                `json:"_id"`
	User      string                `json:"user"`
	Items     []cartRefItemResponse `json:"items"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type cartRefItemResponse struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// GetCart returns the caller's cart, or an empty item list when none exists.
func (h *Handler) GetCart(c *gin.Context) {
	rc, err := h.carts.GetCart(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(rc))
}

// AddToCart adds a product to the caller's cart and returns the updated cart.
func (h *Handler) AddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	rc, err := h.carts.AddItem(c.Request.Context(), currentUser(c), req.ProductID, quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.toCartResponse(rc))
}

// RemoveFromCart drops a product from the caller's cart. The response lists
// product IDs only.
func (h *Handler) RemoveFromCart(c *gin.Context) {
	updated, err := h.carts.RemoveItem(c.Request.Context(), currentUser(c), c.Param("productId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]cartRefItemResponse, len(updated.Items))
	for i, it := range updated.Items {
		items[i] = cartRefItemResponse{Product: it.ProductID, Quantity: it.Quantity}
	}
	c.JSON(http.StatusOK, cartRefResponse{
		ID:        updated.ID,
		User:      updated.UserID,
		Items:     items,
		CreatedAt: updated.CreatedAt,
		UpdatedAt: updated.UpdatedAt,
	})
}

func (h *Handler) toCartResponse(rc *cart.ResolvedCart) cartResponse {
	items := make([]cartItemResponse, len(rc.Items))
	for i, it := range rc.Items {
		items[i] = cartItemResponse{Quantity: it.Quantity}
		if it.Product != nil {
			p := h.toProductResponse(*it.Product)
			items[i].Product = &p
		}
	}

	// A user without a stored cart gets only the empty item list.
	if rc.ID == "" {
		return cartResponse{Items: items}
	}
	return cartResponse{
		ID:        rc.ID,
		User:      rc.UserID,
		Items:     items,
		CreatedAt: &rc.CreatedAt,
		UpdatedAt: &rc.UpdatedAt,
	}
}
