package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/aegis-allocator/internal/refdata"
)

// healthTimeout 의존성 확인 제한 시간
const healthTimeout = 2 * time.Second

// Pinger is implemented by optional dependencies (database, redis)
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and dependency health
type HealthHandler struct {
	service string
	store   *refdata.Store
	deps    map[string]Pinger
	started time.Time
}

// NewHealthHandler creates a health handler; deps may be empty
func NewHealthHandler(service string, store *refdata.Store, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		service: service,
		store:   store,
		deps:    deps,
		started: time.Now(),
	}
}

// RefDataStatus active reference table snapshot
type RefDataStatus struct {
	Version  string    `json:"version"`
	Hash     string    `json:"hash"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loadedAt"`
}

// HealthResponse health body
type HealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Uptime       string            `json:"uptime"`
	RefData      RefDataStatus     `json:"refdata"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health returns 200 when every configured dependency answers, 503 otherwise
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	resp := HealthResponse{
		Status:  "ok",
		Service: h.service,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		RefData: RefDataStatus{
			Version:  snap.Tables.Version,
			Hash:     snap.Hash,
			Source:   snap.Source,
			LoadedAt: snap.LoadedAt,
		},
	}

	status := http.StatusOK
	if len(h.deps) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp.Dependencies = make(map[string]string, len(h.deps))
		for name, dep := range h.deps {
			if err := dep.Ping(ctx); err != nil {
				resp.Dependencies[name] = "down: " + err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Dependencies[name] = "ok"
		}
	}

	respondJSON(w, status, resp)
}
