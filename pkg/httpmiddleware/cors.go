package httpmiddleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig configures Cross-Origin Resource Sharing.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to make cross-origin requests. An
	// empty list or a "*" entry allows every origin.
	AllowOrigins []string
	// AllowHeaders lists request headers clients may send.
	AllowHeaders []string
	// AllowCredentials exposes responses to credentialed requests. Wildcard
	// origins are then echoed back individually.
	AllowCredentials bool
	// MaxAge is how long preflight results may be cached.
	MaxAge time.Duration
}

// CORS returns a middleware that answers preflight requests and decorates
// responses for allowed origins.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	allowAll := len(cfg.AllowOrigins) == 0
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	switch {
	case allowAll && cfg.AllowCredentials:
		// The wildcard is forbidden with credentials, echo the origin instead.
		c.AllowOriginFunc = func(string) bool { return true }
	case allowAll:
		c.AllowAllOrigins = true
	default:
		c.AllowOrigins = cfg.AllowOrigins
	}
	if len(c.AllowHeaders) == 0 {
		c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	}

	return cors.New(c)
}
