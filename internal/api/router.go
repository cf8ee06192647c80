package api

import (
	"log/slog"
	"net/http"

	"github.com/dom/progress-tracker/internal/api/handlers"
	"github.com/dom/progress-tracker/internal/api/middleware"
	"github.com/dom/progress-tracker/internal/config"
	"github.com/dom/progress-tracker/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, cfg *config.Config, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	cookies := middleware.Cookies{
		Name:        cfg.SessionCookieName,
		ForceSecure: cfg.SecureCookies,
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		services.Credentials,
		services.Sessions,
		services.RateLimiter,
		handlers.AuthLimits{
			Login:    service.RateLimitRule{MaxAttempts: cfg.LoginMaxAttempts, Window: cfg.LoginWindow},
			Register: service.RateLimitRule{MaxAttempts: cfg.RegisterMaxAttempts, Window: cfg.RegisterWindow},
		},
		cookies,
		log,
	)
	taskHandler := handlers.NewTaskHandler(services.Tasks, services.Progress, log)
	dashboardHandler := handlers.NewDashboardHandler(services.Progress)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(services.Sessions, cookies, log))
		csrf := middleware.CSRF(services.Sessions, log)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/csrf", authHandler.CSRFToken)
			r.With(csrf).Post("/register", authHandler.Register)
			r.With(csrf).Post("/login", authHandler.Login)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(csrf)
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(csrf)

			r.Get("/dashboard", dashboardHandler.Get)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Post("/{id}", taskHandler.Update)
			})
		})
	})

	return r
}
