package handler

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/jokeshop/internal/domain/cart"
	"github.com/xenking/jokeshop/internal/domain/product"
	"github.com/xenking/jokeshop/internal/domain/user"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: message})
}

// fail maps domain errors to HTTP responses. Anything unrecognized is logged
// and reported as 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var iqErr *cart.InvalidQuantityError
	switch {
	case errors.Is(err, cart.ErrNotFound):
		abort(c, http.StatusNotFound, "Cart not found")
	case errors.Is(err, product.ErrNotFound):
		abort(c, http.StatusNotFound, "Product not found")
	case errors.Is(err, cart.ErrConflict):
		abort(c, http.StatusConflict, "Cart was modified concurrently, please retry")
	case errors.As(err, &iqErr):
		abort(c, http.StatusBadRequest, iqErr.Error())
	case errors.Is(err, cart.ErrQuantityTooLarge):
		abort(c, http.StatusBadRequest, "Quantity too large")
	case errors.Is(err, user.ErrPasswordTooLong):
		abort(c, http.StatusBadRequest, "password must be at most 72 bytes")
	case errors.Is(err, user.ErrEmailTaken):
		abort(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, user.ErrInvalidCredentials):
		abort(c, http.StatusUnauthorized, "Invalid email or password")
	default:
		zctx.From(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		abort(c, http.StatusInternalServerError, "Internal server error")
	}
}

// badRequest reports a body that failed to bind.
func badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs[i] = fe.Field() + " is required"
		case "min":
			msgs[i] = fe.Field() + " must be at least " + fe.Param()
		case "email":
			msgs[i] = fe.Field() + " must be a valid email address"
		default:
			msgs[i] = fe.Field() + " is invalid"
		}
	}
	abort(c, http.StatusBadRequest, strings.Join(msgs, "; "))
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
