package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"lingoquest/internal/apperr"
	"lingoquest/internal/logger"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterConfig wires the handlers into the HTTP surface
type RouterConfig struct {
	Middleware     *Middleware
	Content        *ContentHandler
	Progress       *ProgressHandler
	Auth           *AuthHandler
	Profile        *ProfileHandler
	DB             Pinger
	AllowedOrigins []string
	RequestTimeout time.Duration
	Log            *logger.Logger
}

// NewRouter builds the API router
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(log))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.GetHead)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, r, log, apperr.NotFound(ErrNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, log, http.StatusMethodNotAllowed, errorResponse{Error: errorBody{
			Code:    "method_not_allowed",
			Message: ErrMethodNotAllowed,
		}})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.DB.PingContext(r.Context()); err != nil {
			log.Error("health check failed", "error", err)
			http.Error(w, "Health check failed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Middleware.RateLimit)
		r.Post("/register", cfg.Auth.Register)
		r.Post("/token", cfg.Auth.Token)
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Middleware.Authenticate)

		r.Get("/languages", cfg.Content.ListLanguages)
		r.Get("/languages/{id}", cfg.Content.GetLanguage)
		r.Get("/modules", cfg.Content.ListModules)
		r.Get("/modules/{id}", cfg.Content.GetModule)
		r.Get("/lessons", cfg.Content.ListLessons)
		r.Get("/lessons/{id}", cfg.Content.GetLesson)
		r.Get("/exercises", cfg.Content.ListExercises)
		r.Get("/exercises/{id}", cfg.Content.GetExercise)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Middleware.RequireAuth)
			r.Post("/progress", cfg.Progress.LogProgress)
			r.Get("/progress", cfg.Progress.ListProgress)
			r.Get("/profile", cfg.Profile.GetProfile)
			r.Patch("/profile", cfg.Profile.UpdateProfile)
		})
	})

	return r
}
