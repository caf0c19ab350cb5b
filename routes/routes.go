package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/club-coordinator/handlers"
	"github.com/Dosada05/club-coordinator/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Logger         *slog.Logger
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	teamHandler *handlers.TeamHandler,
	enrollmentHandler *handlers.EnrollmentHandler,
	captainHandler *handlers.CaptainHandler,
	resultsHandler *handlers.ResultsHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// WebSocket без таймаута: соединение живёт долго.
	router.Get("/ws/{room}", webSocketHandler.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))
		r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))

		r.Get("/guard", teamHandler.CheckMembership)

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", teamHandler.ListTeams)
			r.Get("/{teamID}/members", teamHandler.ListMembers)
			r.With(middleware.RequireAuth).Post("/submit", teamHandler.Submit)
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Get("/events/{eventID}/activities", enrollmentHandler.ListEventActivities)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/", enrollmentHandler.Enroll)
				r.Get("/me", enrollmentHandler.ListMine)
			})
		})

		r.Route("/captains", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/board", captainHandler.Board)
			r.Post("/board/reload", captainHandler.ReloadBoard)
			r.Get("/assignments", captainHandler.Assignments)
			r.Route("/{eventActivityID}", func(r chi.Router) {
				r.Get("/roster", captainHandler.Roster)
				r.Post("/random", captainHandler.AssignRandom)
				r.Post("/manual", captainHandler.AssignManual)
				r.Post("/refresh", captainHandler.Refresh)
				r.Delete("/", captainHandler.Remove)
			})
		})

		r.Route("/results", func(r chi.Router) {
			r.Get("/", resultsHandler.List)
			r.Get("/groups", resultsHandler.Groups)
			r.Get("/standings", resultsHandler.Standings)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/can-edit", resultsHandler.CanEdit)
				r.Post("/", resultsHandler.Create)
				r.Put("/{resultID}", resultsHandler.Update)
				r.Delete("/{resultID}", resultsHandler.Delete)
				r.Post("/export", resultsHandler.Export)
			})
		})
	})
}
