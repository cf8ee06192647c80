package service

import (
	"log/slog"

	"github.com/dom/progress-tracker/internal/config"
	"github.com/dom/progress-tracker/internal/repository"
)

type Services struct {
	Credentials *CredentialService
	Sessions    *SessionManager
	RateLimiter *RateLimiter
	Tasks       *TaskService
	Progress    *ProgressService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log *slog.Logger) *Services {
	return &Services{
		Credentials: NewCredentialService(repos.User, CredentialOptions{
			BcryptCost:   cfg.BcryptCost,
			FailureDelay: cfg.AuthFailureDelay,
		}, log),
		Sessions: NewSessionManager(repos.Session, SessionOptions{
			Timeout:         cfg.SessionTimeout,
			RegenerateAfter: cfg.SessionRegenerate,
		}, log),
		RateLimiter: NewRateLimiter(repos.RateLimit, RateLimiterOptions{
			Retention: max(cfg.LoginWindow, cfg.RegisterWindow),
		}, log),
		Tasks:    NewTaskService(repos.Task, log),
		Progress: NewProgressService(repos.Task, repos.User),
	}
}
