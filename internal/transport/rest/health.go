// Package rest serves the operator HTTP endpoints next to /metrics.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/heartmarshall/refdict/internal/domain"
)

type snapshotSource interface {
	Current() *domain.Snapshot
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Component and overall statuses.
const (
	StatusOK    = "ok"
	StatusStale = "stale"
	StatusEmpty = "empty"
	StatusDown  = "down"
)

// HealthHandler reports cache freshness and durable storage reachability.
type HealthHandler struct {
	cache   snapshotSource
	storage pinger
	ttl     time.Duration
	version string
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler. storage may be nil.
func NewHealthHandler(cache snapshotSource, storage pinger, ttl time.Duration, version string) *HealthHandler {
	return &HealthHandler{cache: cache, storage: storage, ttl: ttl, version: version, now: time.Now}
}

// HealthResponse is the JSON body of /live, /ready and /health.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of one component.
type CompStatus struct {
	Status       string     `json:"status"`
	Latency      string     `json:"latency,omitempty"`
	Age          string     `json:"age,omitempty"`
	Generation   *uuid.UUID `json:"generation,omitempty"`
	Dictionaries int        `json:"dictionaries,omitempty"`
}

// Live always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: StatusOK, Timestamp: h.now()})
}

// Ready returns 200 once a snapshot is in memory, stale or not, since a
// stale snapshot still renders every picker.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.cache.Current() == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: StatusEmpty, Timestamp: h.now()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: StatusOK, Timestamp: h.now()})
}

// Health reports every component. A stale cache degrades the overall status
// but still answers 200; an empty cache or unreachable storage answers 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	now := h.now()
	components := map[string]CompStatus{"cache": h.cacheStatus(now)}
	if h.storage != nil {
		components["storage"] = h.storageStatus(ctx)
	}

	overall, code := StatusOK, http.StatusOK
	for _, c := range components {
		switch c.Status {
		case StatusEmpty, StatusDown:
			overall, code = StatusDown, http.StatusServiceUnavailable
		case StatusStale:
			if overall == StatusOK {
				overall = StatusStale
			}
		}
	}

	writeJSON(w, code, HealthResponse{
		Status:     overall,
		Version:    h.version,
		Components: components,
		Timestamp:  now,
	})
}

func (h *HealthHandler) cacheStatus(now time.Time) CompStatus {
	snap := h.cache.Current()
	if snap == nil {
		return CompStatus{Status: StatusEmpty}
	}
	status := StatusOK
	if !snap.IsFresh(now, h.ttl) {
		status = StatusStale
	}
	gen := snap.Generation
	return CompStatus{
		Status:       status,
		Age:          now.Sub(snap.FetchedAt).Round(time.Second).String(),
		Generation:   &gen,
		Dictionaries: len(snap.Entries),
	}
}

func (h *HealthHandler) storageStatus(ctx context.Context) CompStatus {
	start := time.Now()
	if err := h.storage.Ping(ctx); err != nil {
		return CompStatus{Status: StatusDown}
	}
	return CompStatus{Status: StatusOK, Latency: time.Since(start).String()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
