package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/edirooss/zmux-analytics/internal/domain/analytics"
	"github.com/edirooss/zmux-analytics/internal/gateway"
	mw "github.com/edirooss/zmux-analytics/internal/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConfigurationHandler serves the analytics configuration resource.
//
// Supported operations:
//   - GET /configuration → latest accepted configuration
//   - PUT /configuration → validate and queue a new configuration
//
// Every other method answers 400 with a status body.
type ConfigurationHandler struct {
	log *zap.Logger
	gw  *gateway.Gateway
}

// NewConfigurationHandler constructs a ConfigurationHandler instance.
func NewConfigurationHandler(log *zap.Logger, gw *gateway.Gateway) *ConfigurationHandler {
	return &ConfigurationHandler{
		log: log.Named("configuration"),
		gw:  gw,
	}
}

// Register mounts the configuration routes on r.
func (h *ConfigurationHandler) Register(r gin.IRoutes) {
	r.GET("/configuration", h.GetConfiguration)
	r.PUT("/configuration", h.PutConfiguration)
	for _, m := range []string{http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodHead} {
		r.Handle(m, "/configuration", h.Unsupported)
	}
}

// GetConfiguration handles GET /configuration.
//
// Status Codes:
//   - 200 OK        → configuration JSON
//   - 404 Not Found → no configuration accepted yet
func (h *ConfigurationHandler) GetConfiguration(c *gin.Context) {
	cfg, ok := h.gw.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, analytics.ApiResponse{Code: analytics.CodeRejected, Message: "no configuration set"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// PutConfiguration handles PUT /configuration.
//
// Behavior:
//   - Strictly decodes and validates the body.
//   - Queues the configuration for the dispatch loop; it is applied on the
//     loop's next iteration, not before the response is sent.
//
// Status Codes:
//   - 200 OK          → {"code": 0, "message": ""}
//   - 400 Bad Request → {"code": 1, "message": <reason>}
func (h *ConfigurationHandler) PutConfiguration(c *gin.Context) {
	cfg, err := analytics.Decode(c.Request.Body)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, analytics.ApiResponse{Code: analytics.CodeRejected, Message: message(err)})
		return
	}

	h.gw.Put(cfg)
	mw.Logger(c, h.log).Info("configuration request",
		zap.Bool("record_enable", cfg.Record.Enable),
		zap.String("record_uri", cfg.Record.URI()),
		zap.Bool("move_enable", cfg.MoveCamera.Enable),
		zap.String("move_uri", cfg.MoveCamera.URI()),
	)
	c.JSON(http.StatusOK, analytics.ApiResponse{Code: analytics.CodeOK})
}

// Unsupported answers any other method on /configuration.
func (h *ConfigurationHandler) Unsupported(c *gin.Context) {
	c.JSON(http.StatusBadRequest, analytics.ApiResponse{
		Code:    analytics.CodeRejected,
		Message: fmt.Sprintf("Method %s not supported", c.Request.Method),
	})
}

func message(err error) string {
	var verr *analytics.ConfigValidationError
	if errors.As(err, &verr) {
		return verr.Err.Error()
	}
	return err.Error()
}
