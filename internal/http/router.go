package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/messagely/server/internal/auth"
	"github.com/messagely/server/internal/http/handlers"
	"github.com/messagely/server/internal/middleware"
	"github.com/messagely/server/internal/repo"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	authHandler *handlers.AuthHandler,
	msgHandler *handlers.MessageHandler,
	userHandler *handlers.UserHandler,
	jwtService *auth.JWTService,
	userRepo repo.UserRepo,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
	})

	// Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService, userRepo))

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", msgHandler.HandleSend)
			r.Get("/{id}", msgHandler.HandleGet)
			r.Post("/{id}/read", msgHandler.HandleMarkRead)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleList)
			r.Get("/{username}", userHandler.HandleGet)
			r.Get("/{username}/messages/sent", userHandler.HandleListSent)
			r.Get("/{username}/messages/received", userHandler.HandleListReceived)
		})
	})

	return r
}
