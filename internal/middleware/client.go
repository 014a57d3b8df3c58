package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// ContextKeyClientID is the gin context key holding the demo client identity.
const ContextKeyClientID = "client_id"

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// ClientIdentity reads the demo client identity from X-Client-ID. There is no
// authentication; the header only scopes sessions to a client.
func ClientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader("X-Client-ID")
		if !clientIDPattern.MatchString(clientID) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   gin.H{"code": "MISSING_CLIENT_ID", "message": "X-Client-ID header is required"},
			})
			return
		}
		c.Set(ContextKeyClientID, clientID)
		c.Next()
	}
}

// GetClientID returns the client id set by ClientIdentity.
func GetClientID(c *gin.Context) string {
	return c.GetString(ContextKeyClientID)
}
