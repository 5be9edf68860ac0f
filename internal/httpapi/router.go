// Package httpapi serves the risk service over HTTP with gin.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/metrics"
	"github.com/Skufu/postcovid-risk/internal/patient"
	"github.com/Skufu/postcovid-risk/internal/service"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type PatientLister interface {
	ListPatients(ctx context.Context) ([]patient.Patient, error)
}

type Options struct {
	MaxBodyBytes int64
	RateLimit    float64 // requests per second per client, 0 disables
	RateBurst    int
	AllowOrigins []string
}

func DefaultOptions() Options {
	return Options{
		MaxBodyBytes: 1 << 20,
		RateLimit:    20,
		RateBurst:    40,
		AllowOrigins: []string{"*"},
	}
}

// Deps are the router's collaborators. DB and Service are nil when the
// database is disabled; patient routes then answer 503.
type Deps struct {
	DB       HealthChecker
	Patients PatientLister
	Service  *service.PredictionService
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func NewRouter(deps Deps, opts Options) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		requestLogger(logger, deps.Metrics),
		recovery(logger),
		limitBodySize(opts.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readyz(deps.DB))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	h := &handlers{svc: deps.Service, patients: deps.Patients, logger: logger}
	api := router.Group("/api")
	if opts.RateLimit > 0 {
		api.Use(newIPRateLimiter(opts.RateLimit, opts.RateBurst).middleware())
	}
	api.GET("/registry", h.registry)
	api.GET("/patients", h.listPatients)
	api.GET("/patients/:id/sufficiency", h.sufficiency)
	api.GET("/patients/:id/predictions", h.predictions)
	api.GET("/patients/:id/plan", h.plan)
	api.GET("/patients/:id/report", h.report)

	return router
}

func readyz(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	}
}
