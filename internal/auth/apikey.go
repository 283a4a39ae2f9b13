package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
	"github.com/PratikDhanave/intake-edge/internal/edge"
)

// tenantCtxKey is the Gin context key used to store the authenticated tenant ID.
const tenantCtxKey = "tenant_id"

// APIKey extracts the caller's key. Browsers may only send the headers the
// CORS policy allows, so besides X-API-Key the key is accepted as "apikey",
// as "Authorization: Bearer <key>", and as ?key= for websocket upgrades.
func APIKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader("X-API-Key")); k != "" {
		return k
	}
	if k := strings.TrimSpace(c.GetHeader("apikey")); k != "" {
		return k
	}
	if h := c.GetHeader("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(c.Query("key"))
}

// APIKeyMiddleware enforces multi-tenancy by mapping the API key to a tenant ID.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := keys[APIKey(c)]
		if !ok {
			edge.Fail(c, apperr.New(apperr.CodeUnauthorized, "unauthorized"))
			return
		}
		c.Set(tenantCtxKey, tenantID)
		c.Next()
	}
}

// TenantID returns the authenticated tenant ID from the request context.
func TenantID(c *gin.Context) string {
	v, _ := c.Get(tenantCtxKey)
	s, _ := v.(string)
	return s
}
