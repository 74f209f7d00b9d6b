package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/xenking/jokeshop/internal/domain/user"
)

const userIDKey = "userID"

// Authenticate rejects requests without a valid bearer token for an existing
// user. On success the user ID is available through currentUser.
func (h *Handler) Authenticate(c *gin.Context) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		abort(c, http.StatusUnauthorized, "Not authorized, no token")
		return
	}

	id, err := h.tokens.Verify(strings.TrimSpace(raw))
	if err != nil {
		abort(c, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	if _, err := h.accounts.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			abort(c, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}
		h.fail(c, errors.Wrap(err, "get user"))
		return
	}

	c.Set(userIDKey, id)
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
