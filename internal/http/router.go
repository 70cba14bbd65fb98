package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/http/health"
)

// New builds the operations router. Business operations are not exposed over HTTP.
func New(log *zap.Logger, healthV1 *health.Handler, metrics http.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(RequestLogger(log))
	router.Use(middleware.Recoverer)

	router.Route("/healthz", healthV1.Routes)
	router.Method(http.MethodGet, "/metrics", metrics)

	return router
}
