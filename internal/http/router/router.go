// Package router assembles the gin engine from the registered modules.
package router

import (
	"context"
	"net/http"

	apphttp "crm_rotation_backend/internal/http"
	"crm_rotation_backend/platform/config"
	"crm_rotation_backend/platform/httpkit"
	"crm_rotation_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Config combines the config interfaces needed by the router.
type Config interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// New builds the gin engine, wires shared middleware, and lets each module
// register its routes.
func New(cfg Config, log *logger.Logger, health HealthChecker, modules ...apphttp.Module) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	engine.Use(cors.New(corsCfg))

	limiter := httpkit.NewIPRateLimiter(50, 100, log)
	engine.Use(limiter.Middleware())

	engine.GET("/api/health", func(c *gin.Context) {
		if health != nil {
			if err := health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(httpkit.JWTAuth(cfg))
	admin := v1.Group("/admin")
	admin.Use(httpkit.JWTAuth(cfg), httpkit.RequireRole("admin"))

	routerCtx := &apphttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: protected,
		Admin:     admin,
		Config:    cfg,
	}

	for _, m := range modules {
		m.RegisterRoutes(routerCtx)
		log.Debug("registered module routes", "module", m.Name())
	}

	return engine
}
