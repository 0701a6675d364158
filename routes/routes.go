package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"txmon/models"
)

// StateReader exposes the last published port states.
type StateReader interface {
	Get(alias string) (models.PortStatus, bool)
	List() []models.PortStatus
}

// MonitorReader exposes the live monitor settings.
type MonitorReader interface {
	Config() models.MonitorConfig
	Registry() []models.PortIdentifier
}

// Submitter queues reconfiguration commands for the monitor.
type Submitter interface {
	Submit(ctx context.Context, cmd models.Command) error
	Running() bool
}

// Handlers carries the dependencies of the HTTP API.
type Handlers struct {
	States    StateReader
	Monitor   MonitorReader
	Scheduler Submitter
	Stream    gin.HandlerFunc
	Gatherer  prometheus.Gatherer
	JWTSecret []byte
	Logger    *zap.Logger
}

func (h *Handlers) HealthHandler(c *gin.Context) {
	if !h.Scheduler.Running() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "running"})
}

func (h *Handlers) ListPortsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ports": h.States.List()})
}

func (h *Handlers) GetPortHandler(c *gin.Context) {
	alias := c.Param("alias")
	st, ok := h.States.Get(alias)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no state published for port " + alias})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handlers) RegistryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ports": h.Monitor.Registry()})
}

func (h *Handlers) GetConfigHandler(c *gin.Context) {
	cfg := h.Monitor.Config()
	c.JSON(http.StatusOK, gin.H{
		models.KeyPollingPeriod: cfg.PollingPeriod,
		models.KeyThreshold:     cfg.Threshold,
	})
}

// SetConfigHandler queues a SET command. The value is validated by the
// monitor when the command is applied.
func (h *Handlers) SetConfigHandler(c *gin.Context) {
	key := c.Param("key")
	if key != models.KeyPollingPeriod && key != models.KeyThreshold {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown key " + key})
		return
	}

	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.Scheduler.Submit(c.Request.Context(), models.SetCommand(key, req.Value)); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	h.Logger.Info("config command queued",
		zap.String("key", key), zap.String("value", req.Value), zap.String("subject", c.GetString("subject")))
	c.JSON(http.StatusAccepted, gin.H{"message": "command queued"})
}

// InitRoutes registers the API on router.
func InitRoutes(router *gin.Engine, h *Handlers) {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}

	router.GET("/healthz", h.HealthHandler)
	router.GET("/ports", h.ListPortsHandler)
	router.GET("/ports/:alias", h.GetPortHandler)
	router.GET("/registry", h.RegistryHandler)
	router.GET("/config", h.GetConfigHandler)
	router.PUT("/config/:key", AuthMiddleware(h.JWTSecret), h.SetConfigHandler)

	if h.Stream != nil {
		router.GET("/ws", AuthMiddleware(h.JWTSecret), h.Stream)
	}
	if h.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}
}
