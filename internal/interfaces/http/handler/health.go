package handler

import (
	"net/http"
	"time"

	"github.com/debtdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	BaseHandler
	startTime time.Time
	checks    map[string]Pinger
}

// NewHealthHandler creates a HealthHandler probing the named dependencies
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), checks: checks}
}

// HealthResponse is the health endpoint body
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health answers 200 when every dependency responds and 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, p := range h.checks {
		if err := p.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp, Error: &dto.ErrorInfo{
			Code:    dto.ErrCodeUnavailable,
			Message: "One or more dependencies are unavailable",
		}})
		return
	}
	h.Success(c, resp)
}
