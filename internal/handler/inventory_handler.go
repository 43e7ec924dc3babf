package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readinessTimeout = 3 * time.Second

type ItemFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Record, error)
}

// ReadinessCheck reports whether the service can reach its dependencies.
type ReadinessCheck func(ctx context.Context) error

type InventoryHandler struct {
	items     ItemFinder
	readiness ReadinessCheck
	logger    *zap.Logger
}

func NewInventoryHandler(items ItemFinder, readiness ReadinessCheck, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		items:     items,
		readiness: readiness,
		logger:    logger,
	}
}

func (h *InventoryHandler) Register(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/items/:id", h.GetItem)
	}
}

func (h *InventoryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *InventoryHandler) Ready(c *gin.Context) {
	if h.readiness != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if err := h.readiness(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *InventoryHandler) GetItem(c *gin.Context) {
	itemID := c.Param("id")

	item, err := h.items.FindByID(c.Request.Context(), itemID)
	if err != nil {
		h.logger.Error("Failed to get item",
			zap.String("item_id", itemID),
			zap.Error(err))

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get item",
		})
		return
	}

	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Item not found",
		})
		return
	}

	c.JSON(http.StatusOK, item.Response())
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
