package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS attaches permissive cross-origin headers to every response and
// answers the OPTIONS preflight with an empty 200. Browser front-ends call
// this API directly, so the headers must be present on error responses too.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
		c.Header("Access-Control-Allow-Methods", "POST,OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
