package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/visitplan/backend/internal/config"
	"github.com/visitplan/backend/internal/db"
	"github.com/visitplan/backend/internal/geocode"
	"github.com/visitplan/backend/internal/http/handlers"
	"github.com/visitplan/backend/internal/http/middleware"
	"github.com/visitplan/backend/internal/metrics"
	"github.com/visitplan/backend/internal/service"

	_ "github.com/visitplan/backend/docs"
)

// Router wires the API. store, geocoder and cache may be nil.
func Router(cfg config.Config, store *db.Store, planner *service.PlanningService, geocoder geocode.Geocoder, cache handlers.Purger, m *metrics.Metrics, logger zerolog.Logger) *gin.Engine {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = strings.Split(cfg.CORSAllowed, ",")
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:          store,
		Planner:        planner,
		Geocoder:       geocoder,
		Cache:          cache,
		Defaults:       cfg.SimulationOptions(),
		Validator:      handlers.NewValidator(),
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	}

	r.GET("/healthz", h.Healthz)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")
	{
		api.POST("/routes", h.BuildRoutes)
		api.POST("/feasibility", h.Feasibility)
		api.POST("/conflicts", h.Conflicts)
		api.POST("/conflicts/resolve", h.ResolveConflicts)
		api.POST("/plans", h.Plan)
		api.POST("/geocode", h.Geocode)
		api.POST("/appointments/import", h.ImportAppointments)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey, logger))
	{
		admin.POST("/cache/purge", h.PurgeCache)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
