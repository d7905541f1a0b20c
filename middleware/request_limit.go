package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimit caps request bodies at limit bytes. Bodies declared larger are
// rejected before the handler runs; undeclared ones fail on read. Both surface as
// *http.MaxBytesError, which ErrorHandler reports against the configured file size.
func RequestSizeLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.Error(&http.MaxBytesError{Limit: limit})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
