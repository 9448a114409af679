package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/andresg0412/waiwahost-plataforma/internal/infra/config"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Window(c *gin.Context)
	Grid(c *gin.Context)
	Check(c *gin.Context)
	Create(c *gin.Context)
	Edit(c *gin.Context)
	Delete(c *gin.Context)
}

type Handlers struct {
	Availability AvailabilityHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without binding an address.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(obsMW.RequestScope(), obsMW.AccessLog(), obsMW.Recover())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/availability", h.Availability.Window)
		api.GET("/availability/grid", h.Availability.Grid)
		api.POST("/intervals/check", h.Availability.Check)
		api.POST("/intervals", h.Availability.Create)
		api.PATCH("/intervals/:kind/:id", h.Availability.Edit)
		api.DELETE("/intervals/:kind/:id", h.Availability.Delete)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader, obs.CompanyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
