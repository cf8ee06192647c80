package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dom/progress-tracker/internal/api/middleware"
	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/logging"
	"github.com/dom/progress-tracker/internal/service"
	"github.com/go-playground/validator/v10"
)

type AuthLimits struct {
	Login    service.RateLimitRule
	Register service.RateLimitRule
}

type AuthHandler struct {
	credentials *service.CredentialService
	sessions    *service.SessionManager
	limiter     *service.RateLimiter
	limits      AuthLimits
	cookies     middleware.Cookies
	validate    *validator.Validate
	log         *slog.Logger
}

func NewAuthHandler(
	credentials *service.CredentialService,
	sessions *service.SessionManager,
	limiter *service.RateLimiter,
	limits AuthLimits,
	cookies middleware.Cookies,
	log *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		sessions:    sessions,
		limiter:     limiter,
		limits:      limits,
		cookies:     cookies,
		validate:    service.NewValidator(),
		log:         log,
	}
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (req *RegisterRequest) fromForm(form url.Values) {
	req.Username = form.Get("username")
	req.Password = form.Get("password")
	req.ConfirmPassword = form.Get("confirm_password")
}

func (req *RegisterRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (req *LoginRequest) fromForm(form url.Values) {
	req.Username = form.Get("username")
	req.Password = form.Get("password")
}

func (req *LoginRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Success   bool         `json:"success"`
	User      UserResponse `json:"user"`
	CSRFToken string       `json:"csrf_token"`
}

type RegisterResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type CSRFResponse struct {
	CSRFToken string `json:"csrf_token"`
}

func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sc, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := h.sessions.IssueCSRFToken(r.Context(), sc)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to issue csrf token", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, CSRFResponse{CSRFToken: token})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ip := middleware.ClientIP(r)
	if !h.limiter.Allow(r.Context(), "register_"+ip, h.limits.Register) {
		logging.SecurityEvent(r.Context(), h.log, "rate_limited", "action", "register", "ip", ip)
		writeError(w, http.StatusForbidden, "Too many registration attempts. Please try again later.")
		return
	}

	var req RegisterRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.credentials.Register(r.Context(), service.RegisterInput{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		var verrs *domain.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			writeValidationError(w, "Validation failed", verrs)
		case errors.Is(err, domain.ErrDuplicateUsername):
			writeError(w, http.StatusConflict, "Username already exists.")
		default:
			writeError(w, http.StatusInternalServerError, "Registration failed. Please try again.")
		}
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		Success: true,
		Message: "Registration successful!",
		User:    UserResponse{ID: user.ID, Username: user.Username},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sc, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req LoginRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Please fill in all fields.")
		return
	}

	ip := middleware.ClientIP(r)
	if !h.limiter.Allow(r.Context(), "login_"+ip, h.limits.Login) {
		logging.SecurityEvent(r.Context(), h.log, "rate_limited", "action", "login", "ip", ip)
		writeError(w, http.StatusForbidden, "Too many login attempts. Please try again later.")
		return
	}

	user, err := h.credentials.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			logging.SecurityEvent(r.Context(), h.log, "failed_login", "username", req.Username, "ip", ip)
			writeError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.sessions.Login(r.Context(), sc, user); err != nil {
		h.log.ErrorContext(r.Context(), "failed to establish session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.cookies.Set(w, r, sc.ID())

	token, err := h.sessions.IssueCSRFToken(r.Context(), sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		User:      UserResponse{ID: user.ID, Username: user.Username},
		CSRFToken: token,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sc, _ := middleware.GetSession(r.Context())
	userID, ok := sc.UserID()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.credentials.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{ID: user.ID, Username: user.Username})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sc, _ := middleware.GetSession(r.Context())
	userID, _ := sc.UserID()

	err := h.sessions.Logout(r.Context(), sc)
	h.cookies.Clear(w, r)
	logging.SecurityEvent(r.Context(), h.log, "user_logout", "user_id", userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
