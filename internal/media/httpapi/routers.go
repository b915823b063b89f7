package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	// AllowedOrigins enables CORS for the browser client; "*" allows any origin.
	AllowedOrigins []string
	// Storage serves blobs under /storage/ when they live on local disk.
	Storage http.Handler
	Logger  zerolog.Logger
}

func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(cfg.Logger), RequestLogger(cfg.Logger), Metrics())
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	media := r.Group("/v1/media")
	{
		media.GET("", h.ListMedia)
		media.POST("", h.Upload)
		media.GET("/categories", h.ListCategories)
		media.DELETE("/:id", h.Delete)
	}

	if cfg.Storage != nil {
		r.GET("/storage/*key", gin.WrapH(http.StripPrefix("/storage", cfg.Storage)))
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
