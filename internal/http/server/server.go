// Package server assembles the Gin router and HTTP server of the analytics service.
package server

import (
	"net/http"
	"time"

	"github.com/edirooss/zmux-analytics/internal/gateway"
	"github.com/edirooss/zmux-analytics/internal/http/handler"
	mw "github.com/edirooss/zmux-analytics/internal/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options select environment-dependent router behavior.
type Options struct {
	Dev            bool     // verbose gin, no secure headers
	TrustedProxies []string // reverse proxies allowed to set X-Forwarded-*
	MaxConcurrent  int      // cap on in-flight requests; 0 = 64
}

// NewRouter builds the router: middleware chain, configuration resource,
// health and metrics endpoints.
func NewRouter(log *zap.Logger, gw *gateway.Gateway, opts Options) *gin.Engine {
	if !opts.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer()

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 64
	}

	r := gin.New()
	{
		r.Use(gin.Recovery()) // outermost
		r.Use(mw.RequestID())

		// The configuration UI is served from other origins.
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "PUT", "OPTIONS"},
			AllowHeaders:    []string{"Content-Type", mw.RequestIDHeader},
			ExposeHeaders:   []string{mw.RequestIDHeader},
			MaxAge:          12 * time.Hour,
		}))

		if !opts.Dev {
			_ = r.SetTrustedProxies(opts.TrustedProxies)
			r.Use(secure.New(secure.Config{
				FrameDeny:          true,
				ContentTypeNosniff: true,
				SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
			}))
		}

		r.Use(mw.AccessLog(log.Named("http")))
		r.Use(mw.LimitConcurrentRequests(opts.MaxConcurrent))
		r.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
			c.Next()
		})
	}

	r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.NewConfigurationHandler(log, gw).Register(r)

	return r
}

// NewHTTPServer wraps h with conservative timeouts.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
