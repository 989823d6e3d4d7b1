package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/finledger/finledger-be/internal/api/handlers"
	"github.com/finledger/finledger-be/internal/auth"
	"github.com/finledger/finledger-be/internal/services"
	"github.com/finledger/finledger-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	hub *websocket.Hub,
	tokens *auth.Manager,
	userService services.UserServiceProvider,
	ledgerService services.LedgerServiceProvider,
	eventService services.EventServiceProvider,
	allowedOrigin string,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, tokens)
	statementHandler := handlers.NewStatementHandler(ledgerService)
	eventHandler := handlers.NewEventHandler(eventService)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/users", userHandler.Register)
		r.Post("/sessions", userHandler.Login)

		// Everything below requires a valid session
		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware())

			r.Get("/profile", userHandler.GetMe)
			r.Get("/events", eventHandler.GetRecent)
			r.Get("/ws", wsHandler.Serve)

			r.Route("/statements", func(r chi.Router) {
				r.Post("/deposit", statementHandler.Deposit)
				r.Post("/withdraw", statementHandler.Withdraw)
				r.Post("/transfers/{receiverID}", statementHandler.Transfer)
				r.Get("/balance", statementHandler.GetBalance)
				r.Get("/{id}", statementHandler.Get)
			})
		})
	})

	return r
}
