package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"askdata-ai/internal/handlers"
	"askdata-ai/internal/schema"
	"askdata-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Resolver       handlers.QueryResolver
	SchemaIndex    *schema.Index
	DB             *sql.DB
	VectorStore    vectorstore.VectorStore
	CollectionName string
	// KeyExtractor picks the rate-limit bucket key per request.
	// Nil means a single global bucket.
	KeyExtractor handlers.KeyExtractor
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.Resolver, deps.KeyExtractor)
	schemaHandler := handlers.NewSchemaHandler(deps.SchemaIndex)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore, deps.CollectionName)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", queryHandler)
		r.Method(http.MethodGet, "/schema", schemaHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
