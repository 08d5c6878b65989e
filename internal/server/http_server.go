package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	ginapi "github.com/exceedlab/blogd/api/gin"
	"github.com/exceedlab/blogd/config"
	"github.com/exceedlab/blogd/internal/blacklist"
	"github.com/exceedlab/blogd/internal/token"
	"github.com/exceedlab/blogd/mongodb"
)

// NewHTTPServer creates and configures the Gin HTTP server: recovery,
// request logging, CORS, the per-request authenticator and the API routes.
func NewHTTPServer(
	cfg *config.ServerConfig,
	userAPI *ginapi.UserAPI,
	tokens *token.Service,
	bl blacklist.Store,
	registry *prometheus.Registry,
) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Info()
		if len(c.Errors) > 0 {
			ev = log.Error().Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}))

	// Every request passes the authenticator; individual routes opt into
	// RequireAuth for the hard identity check.
	router.Use(ginapi.Authenticate(tokens, bl))

	userAPI.RegisterRoutes(router)

	router.GET("/healthz", func(c *gin.Context) {
		if err := mongodb.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
