package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openmined/syftbox/internal/server/handlers/api"
	"github.com/openmined/syftbox/internal/server/handlers/auth"
	"github.com/openmined/syftbox/internal/server/handlers/vault"
	"github.com/openmined/syftbox/internal/server/middlewares"
	"github.com/openmined/syftbox/internal/version"
)

func SetupRoutes(cfg *Config, svc *Services) http.Handler {
	r := gin.New()

	// --------------------------- middlewares ---------------------------

	r.Use(gin.Recovery())
	r.Use(middlewares.Logger())
	r.Use(middlewares.CORS())
	r.Use(middlewares.GZIP())
	if cfg.HTTP.HTTPSEnabled() {
		r.Use(middlewares.HSTS())
	}

	// --------------------------- handlers ---------------------------

	vaultH := vault.New(svc.Vault)
	authH := auth.New(svc.Auth)

	// --------------------------- routes ---------------------------

	r.GET("/", IndexHandler)
	r.GET("/health", HealthHandler)

	admin := r.Group("/admin")
	admin.Use(middlewares.AdminAuth(svc.Auth))
	admin.Use(middlewares.RateLimiter("10-M"))
	{
		admin.POST("/devices", authH.IssueToken)
	}

	sync := r.Group("/")
	sync.Use(middlewares.DeviceAuth(svc.Auth))
	{
		sync.GET("/manifest", vaultH.GetManifest)
		sync.PUT("/manifest", vaultH.PutManifest)
		sync.POST("/files/upload-url", vaultH.UploadURL)
		sync.POST("/files/download-url", vaultH.DownloadURL)
		sync.POST("/files/delete", vaultH.DeleteFiles)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.SyftAPIError{
			Code:    api.CodeInvalidRequest,
			Message: "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, api.SyftAPIError{
			Code:    api.CodeInvalidRequest,
			Message: "method not allowed",
		})
	})

	return r.Handler()
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"ok":        true,
		"version":   version.Version,
		"timestamp": time.Now().UTC(),
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
