// Package auth handles the single admin-facing HTTP endpoint for minting
// device tokens; day-to-day verification happens in the DeviceAuth
// middleware instead.
package auth

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/syftbox/internal/server/auth"
	"github.com/openmined/syftbox/internal/server/handlers/api"
)

type AuthHandler struct {
	auth *auth.Service
}

func New(auth *auth.Service) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) IssueToken(ctx *gin.Context) {
	var req IssueTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("failed to bind json: %w", err))
		return
	}

	token, err := h.auth.IssueToken(req.DeviceID)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeAuthTokenGenerationFailed, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &IssueTokenResponse{Token: token})
}
