package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voicebridge/voicebridge/internal/handler/auth"
	"github.com/voicebridge/voicebridge/internal/handler/control"
	middlewarePkg "github.com/voicebridge/voicebridge/internal/middleware"
)

// NewRouter wires the control-plane HTTP routes.
func NewRouter(authHandler *auth.Handler, controlHandler *control.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		authHandler.RegisterRoutes(api)
		controlHandler.RegisterRoutes(api)
	})

	return r
}
