package middelware

import (
	"net/http"
	"time"

	"roadrescue-backend/models"
	"roadrescue-backend/utils/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per completed request with the fields the
// ops dashboards filter on. Health probes are noisy and skipped.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api/v1/health" || path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    path,
			"status":  status,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if userID, ok := c.Get("user_id"); ok {
			fields["user_id"] = userID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Errorf("request failed: %+v", fields)
		case status >= 400:
			log.Warnf("request rejected: %+v", fields)
		default:
			log.Infof("request completed: %+v", fields)
		}
	}
}

// Recovery converts panics into a 500 with the standard error envelope
// instead of a dropped connection.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorf("panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
			Status:  "error",
			Code:    http.StatusInternalServerError,
			Message: "Internal server error",
			Error:   &models.APIError{Type: "InternalError", Details: "An unexpected error occurred"},
		})
	})
}
