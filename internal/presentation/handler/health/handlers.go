package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hilthontt/huddle/internal/infrastructure/json"
)

// Counter reports a live gauge, e.g. the number of open rooms.
type Counter interface {
	Count() int
}

type Handler struct {
	startTime   time.Time
	healthy     atomic.Bool
	rooms       Counter
	connections Counter
}

func NewHandler(rooms, connections Counter) *Handler {
	h := &Handler{
		startTime:   time.Now(),
		rooms:       rooms,
		connections: connections,
	}
	h.healthy.Store(true)
	return h
}

// SetHealthy flips the reported status, e.g. to drain traffic before
// shutdown.
func (h *Handler) SetHealthy(healthy bool) {
	h.healthy.Store(healthy)
}

// GetHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API, including uptime, open rooms and connections
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is healthy"
// @Failure      503 {object} healthResponse "Service is unhealthy"
// @Router       /health [get]
// @Router       /healthz [get]
// @Router       /ready [get]
// @Router       /live [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Rooms:       count(h.rooms),
		Connections: count(h.connections),
	}

	if !h.healthy.Load() {
		resp.Status = "unhealthy"
		json.Write(w, http.StatusServiceUnavailable, resp)
		return
	}

	json.Write(w, http.StatusOK, resp)
}

func count(c Counter) int {
	if c == nil {
		return 0
	}
	return c.Count()
}
