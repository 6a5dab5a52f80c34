package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/dashboard-backend/internal/handlers"
	"github.com/GregMSThompson/dashboard-backend/internal/metrics"
	"github.com/GregMSThompson/dashboard-backend/internal/middleware"
)

func NewRouter(deps *handlers.Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggerMiddleware(deps.Log, deps.ProjectID).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler())

	ush := handlers.NewUserHandlers(deps)
	prh := handlers.NewPreferencesHandlers(deps)

	r.Group(func(r chi.Router) {
		r.Use(identity(deps))
		r.Mount("/users", ush.UserRoutes())
		r.Mount("/preferences", prh.PreferencesRoutes())
	})
	return r
}

// identity falls back to Firebase ID token verification when no other identity
// middleware was supplied.
func identity(deps *handlers.Deps) func(http.Handler) http.Handler {
	if deps.Identity != nil {
		return deps.Identity
	}
	return middleware.NewMiddleware(deps.Firebase).FirebaseAuth
}
