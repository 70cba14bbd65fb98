package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	checks  map[string]Checker
	version string
	timeout time.Duration
	log     *zap.Logger
}

func NewHandler(version string, timeout time.Duration, log *zap.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, version: version, timeout: timeout, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.live)
	r.Get("/ready", h.ready)
}

func (h *Handler) live(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, healthResponse{Status: statusOK, Version: h.version})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{Status: statusOK, Version: h.version, Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK

	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("check", name), zap.Error(err))

			resp.Checks[name] = err.Error()
			resp.Status = statusDown
			code = http.StatusServiceUnavailable

			continue
		}

		resp.Checks[name] = statusOK
	}

	h.write(w, code, resp)
}

func (h *Handler) write(w http.ResponseWriter, code int, resp healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}
