package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/renegades-league/draftd/internal/auth"
)

// NewRouter assembles the API surface. websocketHandler serves /ws; the
// auth middleware runs on every route so both REST handlers and the
// WebSocket upgrade can read the caller's identity.
func NewRouter(h *Handler, verifier *auth.Verifier, websocketHandler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(verifier.Middleware)

	r.Get("/healthz", h.handleHealthz)
	r.Get("/ws", websocketHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/draft", func(r chi.Router) {
			r.Get("/picks", h.handleGetPicks)
			r.Get("/state", h.handleGetState)
			r.Post("/pick", auth.RequireTeam(h.handleMakePick))
			r.Post("/picks/{id}/trade", auth.RequireTeam(h.handleTradePick))
		})

		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.handleGetPlayers)
			r.Get("/available", h.handleGetAvailablePlayers)
			r.Post("/import", h.handleImportPlayers)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.handleGetTeams)
			r.Post("/", h.handleCreateTeam)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.handleGetSettings)
			r.Put("/", h.handleUpdateSettings)
		})

		r.Route("/keepers", func(r chi.Router) {
			r.Get("/", h.handleGetKeepers)
			r.Post("/", h.handleCreateKeeper)
			r.Delete("/{id}", h.handleDeleteKeeper)
		})

		r.Get("/presence", h.handleGetPresence)
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}
