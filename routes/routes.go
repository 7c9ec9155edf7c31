package routes

import (
	"github.com/Ljimmex/NexArenav2-sub001/handlers"
	"github.com/Ljimmex/NexArenav2-sub001/middleware"
	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRoutes mounts the full HTTP surface. Read endpoints are public;
// anything that mutates a tournament or its bracket requires an
// authenticated organizer.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	participantHandler *handlers.ParticipantHandler,
	bracketHandler *handlers.BracketHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	organizerOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/auth/me", authHandler.Me)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{id}", tournamentHandler.GetByID)
		r.Get("/{id}/participants", participantHandler.List)
		r.Get("/{id}/bracket", bracketHandler.Get)

		r.Post("/{id}/participants", participantHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", tournamentHandler.Create)
			r.Delete("/{id}", tournamentHandler.Cancel)
			r.Post("/{id}/logo", tournamentHandler.UploadLogo)
			r.Post("/{id}/bracket", bracketHandler.Generate)
		})
	})

	router.Route("/participants", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/{participantID}/logo", participantHandler.UploadLogo)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/{matchID}/schedule", matchHandler.Schedule)
			r.Post("/{matchID}/start", matchHandler.Start)
			r.Post("/{matchID}/result", matchHandler.RecordResult)
			r.Post("/{matchID}/cancel", matchHandler.Cancel)
			r.Post("/{matchID}/reopen", matchHandler.Reopen)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Get("/swagger/*", httpSwagger.WrapHandler)
}
