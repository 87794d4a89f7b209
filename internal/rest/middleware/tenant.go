package middleware

import (
	"context"

	"github.com/clubledger/clubledger/internal/types"
	"github.com/gin-gonic/gin"
)

const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// TenantMiddleware resolves the tenant and acting user for the request.
// Authentication proper is out of scope; identities arrive as trusted
// headers from the gateway, with local defaults for development.
func TenantMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	tenantID := c.GetHeader(HeaderTenantID)
	if tenantID == "" {
		tenantID = types.DefaultTenantID
	}
	userID := c.GetHeader(HeaderUserID)
	if userID == "" {
		userID = types.DefaultUserID
	}

	ctx = context.WithValue(ctx, types.CtxTenantID, tenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, userID)

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
