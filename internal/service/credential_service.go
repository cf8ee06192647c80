package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/logging"
	"github.com/dom/progress-tracker/internal/repository"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

type CredentialService struct {
	users        repository.UserRepository
	validate     *validator.Validate
	bcryptCost   int
	failureDelay time.Duration
	dummyHash    []byte
	log          *slog.Logger
}

type CredentialOptions struct {
	BcryptCost   int
	FailureDelay time.Duration
}

func NewCredentialService(users repository.UserRepository, opts CredentialOptions, log *slog.Logger) *CredentialService {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown so both failure paths pay for a hash.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)

	return &CredentialService{
		users:        users,
		validate:     NewValidator(),
		bcryptCost:   cost,
		failureDelay: opts.FailureDelay,
		dummyHash:    dummy,
		log:          log,
	}
}

type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
}

// ValidateRegistration returns nil when every rule passes.
func (s *CredentialService) ValidateRegistration(input RegisterInput) *domain.ValidationErrors {
	errs := &domain.ValidationErrors{}
	checkRules(s.validate, errs, "username", input.Username, usernameRules)
	checkRules(s.validate, errs, "password", input.Password, passwordRules)
	if err := s.validate.VarWithValue(input.ConfirmPassword, input.Password, "eqfield"); err != nil {
		errs.Add("confirm_password", "Passwords do not match.")
	}
	if !errs.HasErrors() {
		return nil
	}
	return errs
}

func (s *CredentialService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if errs := s.ValidateRegistration(input); errs != nil {
		return nil, errs
	}

	_, err := s.users.GetByUsername(ctx, input.Username)
	if err == nil {
		return nil, domain.ErrDuplicateUsername
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.log.ErrorContext(ctx, "username lookup failed", "error", err)
		return nil, fmt.Errorf("register: %w: %w", domain.ErrPersistence, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			errs := &domain.ValidationErrors{}
			errs.Add("password", "Password must be at most 72 bytes long.")
			return nil, errs
		}
		return nil, err
	}

	user := &domain.User{
		Username:     input.Username,
		PasswordHash: string(hash),
	}

	if err := s.users.CreateWithBackfill(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, err
		}
		logging.SecurityEvent(ctx, s.log, "registration_error", "error", err)
		return nil, fmt.Errorf("register: %w: %w", domain.ErrPersistence, err)
	}

	return user, nil
}

// Authenticate never reveals whether the username or the password was wrong.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	// no stored username holds bytes the database rejects
	var user *domain.User
	err := domain.ErrNotFound
	if isSafeText(username) {
		user, err = s.users.GetByUsername(ctx, username)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.ErrorContext(ctx, "credential lookup failed", "error", err)
			return nil, fmt.Errorf("authenticate: %w: %w", domain.ErrPersistence, err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.penalize(ctx)
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.penalize(ctx)
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

func (s *CredentialService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w: %w", domain.ErrPersistence, err)
	}
	return user, nil
}

func (s *CredentialService) penalize(ctx context.Context) {
	if s.failureDelay <= 0 {
		return
	}
	timer := time.NewTimer(s.failureDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
