package middelware

import (
	"net/http"
	"strings"

	"roadrescue-backend/models"

	"github.com/gin-gonic/gin"
)

// CORS returns a handler that reflects allowed origins back to browser
// clients. The mobile apps talk to the API directly and never send an
// Origin header, so an empty origin passes through untouched.
func CORS(cfg *models.Config) gin.HandlerFunc {
	exact := make(map[string]bool, len(cfg.CORSOrigins))
	var wildcards []string
	allowAll := false
	for _, o := range cfg.CORSOrigins {
		switch {
		case o == "*":
			allowAll = true
		case strings.HasPrefix(o, "*."):
			wildcards = append(wildcards, o[2:])
		default:
			exact[o] = true
		}
	}

	originAllowed := func(origin string) bool {
		if allowAll || exact[origin] {
			return true
		}
		for _, domain := range wildcards {
			if origin == domain || strings.HasSuffix(origin, "."+domain) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); origin != "" {
			if !originAllowed(origin) {
				if c.Request.Method == http.MethodOptions {
					c.AbortWithStatus(http.StatusForbidden)
					return
				}
				c.Next()
				return
			}
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
