package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/housika/receipts/internal/interfaces/http/router"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    map[string]HealthCheck
	liveCount func() int
}

// NewSystemHandler creates a new SystemHandler. liveCount reports the number
// of unreleased receipt handles and may be nil.
func NewSystemHandler(name, version string, liveCount func() int) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]HealthCheck),
		liveCount: liveCount,
	}
}

// AddCheck registers a readiness check.
func (h *SystemHandler) AddCheck(name string, check HealthCheck) *SystemHandler {
	h.checks[name] = check
	return h
}

// Routes returns the system route group.
func (h *SystemHandler) Routes() router.Group {
	return router.Group{
		Name:   "system",
		Prefix: "/system",
		Routes: []router.Route{
			router.GET("/ping", h.Ping),
			router.GET("/info", h.GetSystemInfo),
			router.GET("/ready", h.Ready),
		},
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name        string `json:"name" example:"housika-receipts"`
	Version     string `json:"version" example:"1.0.0"`
	GoVersion   string `json:"go_version" example:"go1.25.5"`
	Uptime      string `json:"uptime" example:"1h30m45s"`
	LiveHandles int    `json:"live_handles"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.liveCount != nil {
		info.LiveHandles = h.liveCount()
	}
	h.Respond(c, http.StatusOK, info)
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Respond(c, http.StatusOK, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Ready godoc
// @ID           readySystem
// @Summary      Readiness probe
// @Description  Runs every registered dependency check. Degraded optional
// @Description  dependencies are reported but do not fail the probe.
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /system/ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = "degraded: " + err.Error()
			continue
		}
		status[name] = "ok"
	}
	h.Respond(c, http.StatusOK, status)
}
