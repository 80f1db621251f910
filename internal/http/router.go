package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"legacy-sync/internal/handlers"
	"legacy-sync/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Migrations handlers.MigrationService
	Records    storage.RecordStore
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)

	// Add CORS middleware
	r.Use(CORS)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Records))
		r.Method(http.MethodPost, "/migrations", handlers.NewMigrationHandler(deps.Migrations))
		r.Method(http.MethodGet, "/migrations/latest", handlers.NewLatestRunHandler(deps.Migrations))
		r.Method(http.MethodGet, "/records/{collection}/{id}", handlers.NewRecordHandler(deps.Records))
	})

	return r
}
