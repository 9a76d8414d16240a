package routes

import (
	"net/http"

	"github.com/Dosada05/tournament-engine/docs"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Session    *handlers.SessionHandler
	Ranking    *handlers.RankingHandler
	Reward     *handlers.RewardHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Metrics        http.Handler
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	router.Method(http.MethodGet, "/openapi.json", docs.SpecHandler())
	router.Method(http.MethodGet, "/swagger/*", docs.UIHandler("/openapi.json"))

	if h.WebSocket != nil {
		router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
	}

	// Изменяющие запросы доступны только организаторам.
	organizer := []func(http.Handler) http.Handler{
		middleware.Authenticate(opts.JWTSecret),
		middleware.Authorize(middleware.RoleOrganizer, middleware.RoleAdmin),
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListHandler)
			r.With(organizer...).Post("/", h.Tournament.CreateHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.Tournament.GetByIDHandler)
				r.Get("/sessions", h.Tournament.ListSessionsHandler)
				r.Get("/ranking", h.Ranking.GetHandler)
				r.Get("/rewards", h.Reward.GetHandler)

				r.Group(func(r chi.Router) {
					r.Use(organizer...)
					r.Post("/open", h.Tournament.OpenRegistrationHandler)
					r.Post("/participants", h.Tournament.EnrollHandler)
					r.Post("/start", h.Tournament.StartHandler)
					r.Post("/cancel", h.Tournament.CancelHandler)
					r.Post("/ranking/recompute", h.Ranking.RecomputeHandler)
					r.Post("/rewards", h.Reward.DistributeHandler)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(organizer...)
			r.Post("/sessions/{sessionID}/result", h.Session.SubmitResultHandler)
		})
	})
}
