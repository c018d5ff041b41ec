package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/mediaqueue/internal/api/middleware"
	"github.com/kiranshivaraju/mediaqueue/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	EnqueueHandler http.HandlerFunc
	StatusHandler  http.HandlerFunc

	ListFilesHandler    http.HandlerFunc
	UploadFileHandler   http.HandlerFunc
	DeleteFileHandler   http.HandlerFunc
	FileMetadataHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/process/batch", orNotImplemented(deps.EnqueueHandler))
		r.Get("/api/v1/process/status", orNotImplemented(deps.StatusHandler))

		r.Get("/api/v1/files", orNotImplemented(deps.ListFilesHandler))
		r.Post("/api/v1/files", orNotImplemented(deps.UploadFileHandler))
		r.Delete("/api/v1/files/{fileID}", orNotImplemented(deps.DeleteFileHandler))
		r.Get("/api/v1/files/{fileID}/metadata", orNotImplemented(deps.FileMetadataHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
