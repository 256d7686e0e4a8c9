package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/snowfall-guild/guilddesk/internal/observability"
	"github.com/snowfall-guild/guilddesk/internal/platform/httpx"
	"github.com/snowfall-guild/guilddesk/internal/shared"
	"github.com/snowfall-guild/guilddesk/internal/users"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	directory *users.Directory
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, directory *users.Directory, sessions *shared.SessionManager, csrf *shared.CSRFManager, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		directory: directory,
		sessions:  sessions,
		csrf:      csrf,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/session", h.showSession)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/password", h.changePassword)
	r.Post("/password/strength", h.passwordStrength)
}

// showSession reports the current login state and hands out the CSRF token
// the client must echo on mutating requests.
func (h *Handler) showSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "session missing")
		return
	}
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	payload := map[string]any{
		"authenticated": false,
		"csrfToken":     token,
	}
	if sess.User() != "" {
		if user, ok := h.directory.FindByID(r.Context(), sess.User()); ok {
			payload["authenticated"] = true
			payload["user"] = user
		}
	}
	httpx.JSON(w, http.StatusOK, payload)
}

type loginRequest struct {
	Username      string `json:"username" validate:"required"`
	Password      string `json:"password" validate:"required"`
	TwoFactorCode string `json:"twoFactorCode"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "username and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password, req.TwoFactorCode)
	if err != nil {
		h.metrics.CountLoginFailure()
		h.respondAuthError(w, err)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(user.ID)
	} else {
		h.logger.Error("session missing during login")
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"user":                  user,
		"requirePasswordChange": user.RequirePasswordChange,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "passwords must be present and match")
		return
	}
	if err := h.service.ChangePassword(r.Context(), sess.User(), req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrWeakPassword):
			strength := CheckPasswordStrength(req.NewPassword)
			httpx.JSON(w, http.StatusBadRequest, map[string]any{
				"error":    err.Error(),
				"strength": strength,
			})
		case errors.Is(err, shared.ErrInvalidCredentials):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "current password is incorrect")
		default:
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type passwordStrengthRequest struct {
	Password string `json:"password"`
}

func (h *Handler) passwordStrength(w http.ResponseWriter, r *http.Request) {
	var req passwordStrengthRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	httpx.JSON(w, http.StatusOK, CheckPasswordStrength(req.Password))
}

func (h *Handler) respondAuthError(w http.ResponseWriter, err error) {
	var locked *LockedError
	var tooMany *TooManyAttemptsError
	var wrongCode *WrongCodeError
	switch {
	case errors.As(err, &locked):
		httpx.JSON(w, http.StatusLocked, map[string]any{
			"error":        locked.Error(),
			"blockedUntil": locked.Until,
		})
	case errors.As(err, &tooMany):
		httpx.JSON(w, http.StatusLocked, map[string]any{
			"error":        tooMany.Error(),
			"blockedUntil": tooMany.Until,
		})
	case errors.As(err, &wrongCode):
		httpx.JSON(w, http.StatusUnauthorized, map[string]any{
			"error":             wrongCode.Error(),
			"attemptsRemaining": wrongCode.AttemptsRemaining,
		})
	case errors.Is(err, ErrSuperAdminCodeRequired):
		httpx.Problem(w, http.StatusUnauthorized, "Verification Code Required", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidCredentials.Error())
	default:
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
