// Package server assembles the HTTP router.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/ayush/exam-bank/backend/internal/auth"
	"github.com/ayush/exam-bank/backend/internal/middleware"
	"github.com/ayush/exam-bank/backend/internal/respond"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router wires together.
type Deps struct {
	Auth           *auth.Handler
	Sessions       *auth.SessionStore
	Log            logrus.FieldLogger
	AllowedOrigins []string
	CSRF           bool
	DB             Pinger
	Metrics        http.Handler
}

// NewRouter returns the application handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", health(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		if d.CSRF {
			r.Use(middleware.CSRF(d.AllowedOrigins))
		}
		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Sessions))
			r.Get("/me", d.Auth.Me)
			r.Post("/logout", d.Auth.Logout)
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
