package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/db"
	"medical-alert-service/internal/escalation"
	"medical-alert-service/internal/history"
	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/models"
	"medical-alert-service/internal/ratelimit"
)

const defaultIncidentLimit = 50

// Pipeline is the part of escalation.Service the API drives.
type Pipeline interface {
	SubmitError(sub models.Submission)
	Process(ctx context.Context, sub models.Submission) escalation.Result
	History() *history.History
}

type Handler struct {
	svc        Pipeline
	incidents  db.IncidentStore
	dispatcher *channels.Dispatcher
	limiter    *ratelimit.Limiter
	logger     *logging.Logger
}

func NewHandler(svc Pipeline, incidents db.IncidentStore, dispatcher *channels.Dispatcher, limiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, incidents: incidents, dispatcher: dispatcher, limiter: limiter, logger: logger}
}

// SubmitError accepts an error report. With ?wait=true the submission is
// processed inline and the full result is returned.
func (h *Handler) SubmitError(c *gin.Context) {
	var sub models.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.logger.Warnf("Invalid error submission: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if sub.Error.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error.message is required"})
		return
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		res := h.svc.Process(c.Request.Context(), sub)
		c.JSON(http.StatusOK, res)
		return
	}
	h.svc.SubmitError(sub)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// GetAlerts returns the alert history, oldest first, optionally filtered by ?tier=.
func (h *Handler) GetAlerts(c *gin.Context) {
	alerts := h.svc.History().Snapshot()
	if t := c.Query("tier"); t != "" {
		tier, err := models.ParseTier(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tier"})
			return
		}
		filtered := alerts[:0]
		for _, a := range alerts {
			if a.Tier == tier {
				filtered = append(filtered, a)
			}
		}
		alerts = filtered
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) GetIncidents(c *gin.Context) {
	limit := defaultIncidentLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	incidents, err := h.incidents.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("Failed to list incidents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list incidents"})
		return
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}
	c.JSON(http.StatusOK, incidents)
}

func (h *Handler) GetIncident(c *gin.Context) {
	id := c.Param("id")
	inc, err := h.incidents.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrIncidentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
			return
		}
		h.logger.Errorf("Failed to get incident %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get incident"})
		return
	}
	c.JSON(http.StatusOK, inc)
}

type channelStatus struct {
	Channel  string `json:"channel"`
	Limit    string `json:"limit,omitempty"`
	InWindow int    `json:"in_window"`
}

// GetChannels lists registered channels with their current rate-limit usage.
func (h *Handler) GetChannels(c *gin.Context) {
	now := h.dispatcher.Now()
	out := make([]channelStatus, 0)
	for _, id := range h.dispatcher.Channels() {
		st := channelStatus{Channel: id, InWindow: h.limiter.InWindow(id, now)}
		if lim, ok := h.limiter.LimitFor(id); ok {
			st.Limit = lim.String()
		}
		out = append(out, st)
	}
	c.JSON(http.StatusOK, out)
}
