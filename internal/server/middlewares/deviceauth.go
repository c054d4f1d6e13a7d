package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openmined/syftbox/internal/server/auth"
	"github.com/openmined/syftbox/internal/server/handlers/api"
)

const (
	bearerPrefix = "Bearer "
	authHeader   = "Authorization"

	// DeviceIDKey is the gin context key set by DeviceAuth on success.
	DeviceIDKey = "deviceId"
)

// DeviceAuth validates the "<deviceId>:<hmac>" bearer token issued by
// auth.Service.IssueToken and stores the authenticated device ID in the
// gin context.
func DeviceAuth(authSvc *auth.Service) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		headerValue := ctx.GetHeader(authHeader)
		if headerValue == "" {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, fmt.Errorf("authorization header required"))
			return
		}

		if !strings.HasPrefix(headerValue, bearerPrefix) {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, fmt.Errorf("bearer token required"))
			return
		}

		token := strings.TrimPrefix(headerValue, bearerPrefix)
		deviceID, err := authSvc.Verify(token)
		if err != nil {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, err)
			return
		}

		ctx.Set(DeviceIDKey, deviceID)
		ctx.Next()
	}
}

// AdminAuth gates the device-token issuance endpoint behind the raw shared
// secret, rather than a device token.
func AdminAuth(authSvc *auth.Service) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		headerValue := ctx.GetHeader(authHeader)
		if !strings.HasPrefix(headerValue, bearerPrefix) {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, fmt.Errorf("bearer token required"))
			return
		}

		token := strings.TrimPrefix(headerValue, bearerPrefix)
		if err := authSvc.VerifyAdmin(token); err != nil {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, err)
			return
		}
		ctx.Next()
	}
}
