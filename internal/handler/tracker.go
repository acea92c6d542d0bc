package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"driverops/internal/location"
	"driverops/internal/model"
	"driverops/internal/service"
)

func (h *Handler) registerTrackerRoutes(r *gin.RouterGroup) {
	tracker := r.Group("/tracker")
	{
		tracker.GET("", h.GetTracker)
		tracker.GET("/sessions", h.ListSessions)
		tracker.POST("/start", h.StartTracker)
		tracker.POST("/pause", h.PauseTracker)
		tracker.POST("/resume", h.ResumeTracker)
		tracker.POST("/stop", h.StopTracker)
		tracker.POST("/points", h.AddPoint)
	}
	r.GET("/ws/tracker", h.TrackerStream)
}

// bindOptionalJSON decodes the body when one was sent
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dst)
}

// GetTracker returns the open session and its live view
func (h *Handler) GetTracker(c *gin.Context) {
	sess, ok := h.svc.Tracker.Active()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"session": nil, "live": nil})
		return
	}
	live := service.LiveSnapshotOf(*sess, h.svc.Clock.Now())
	c.JSON(http.StatusOK, gin.H{"session": sess, "live": live})
}

// ListSessions 获取历史行程
func (h *Handler) ListSessions(c *gin.Context) {
	sessions := h.svc.Tracker.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"data":  sessions,
		"total": len(sessions),
	})
}

// StartTracker opens a session; 409 when one is already open
func (h *Handler) StartTracker(c *gin.Context) {
	var req model.StartSessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	sess, err := h.svc.Tracker.Start(c.Request.Context(), req.VehicleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// PauseTracker 暂停追踪
func (h *Handler) PauseTracker(c *gin.Context) {
	sess, err := h.svc.Tracker.Pause(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ResumeTracker 恢复追踪
func (h *Handler) ResumeTracker(c *gin.Context) {
	sess, err := h.svc.Tracker.Resume(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// StopTracker completes the session, optionally saving it into today's earnings
func (h *Handler) StopTracker(c *gin.Context) {
	var req model.StopSessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	sess, err := h.svc.Tracker.Stop(c.Request.Context(), req.AutoSave)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// AddPoint feeds one GPS sample into the active session
func (h *Handler) AddPoint(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sample, err := location.Decode(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accepted, err := h.svc.Tracker.AddPoint(c.Request.Context(), service.PointFromRequest(sample.PointRequest))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

// TrackerStream upgrades to a websocket carrying live snapshots
func (h *Handler) TrackerStream(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed is disabled"})
		return
	}
	client, err := h.hub.Serve(c.Writer, c.Request)
	if err != nil {
		return
	}
	if sess, ok := h.svc.Tracker.Active(); ok {
		h.hub.SendTo(client, service.LiveSnapshotOf(*sess, h.svc.Clock.Now()))
	}
}
