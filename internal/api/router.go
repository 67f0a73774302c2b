package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medical-alert-service/internal/logging"
)

type RouterConfig struct {
	BasePath string
	Metrics  http.Handler
	Fallback http.Handler
}

func NewRouter(h *Handler, logger *logging.Logger, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.BasePath)
	{
		// Intake
		api.POST("/errors", h.SubmitError)

		// Audit
		api.GET("/alerts", h.GetAlerts)
		api.GET("/incidents", h.GetIncidents)
		api.GET("/incidents/:id", h.GetIncident)
		api.GET("/channels", h.GetChannels)

		if cfg.Fallback != nil {
			api.GET("/ws", gin.WrapH(cfg.Fallback))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	return r
}
