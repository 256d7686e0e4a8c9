package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/snowfall-guild/guilddesk/internal/platform/httpx"
	"github.com/snowfall-guild/guilddesk/internal/rbac"
	"github.com/snowfall-guild/guilddesk/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	directory *Directory
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, directory *Directory, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		directory: directory,
		rbac:      rbacMW,
		validator: validator.New(),
	}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUserRead))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUserCreate))
		r.Post("/", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUserUpdate))
		r.Patch("/{id}", h.updateUser)
		r.Post("/{id}/reset-password", h.resetPassword)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUserDelete))
		r.Delete("/{id}", h.deleteUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list := h.directory.List(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users": list,
		"total": len(list),
	})
}

type createUserRequest struct {
	Username    string            `json:"username" validate:"required,min=2,max=64"`
	Email       string            `json:"email" validate:"omitempty,email"`
	Role        rbac.Role         `json:"role" validate:"required,oneof=super_admin admin moderator user"`
	Groups      []rbac.Group      `json:"groups"`
	Permissions []rbac.Permission `json:"permissions"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		httpx.JSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
		return
	}

	createdBy := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		createdBy = sess.User()
	}
	user, err := h.directory.Create(r.Context(), CreateParams{
		Username:    req.Username,
		Email:       req.Email,
		Role:        req.Role,
		Groups:      req.Groups,
		Permissions: req.Permissions,
		CreatedBy:   createdBy,
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
			return
		}
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	Email       *string           `json:"email" validate:"omitempty,email"`
	Role        *rbac.Role        `json:"role" validate:"omitempty,oneof=super_admin admin moderator user"`
	Groups      []rbac.Group      `json:"groups"`
	Permissions []rbac.Permission `json:"permissions"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user := h.directory.Update(r.Context(), chi.URLParam(r, "id"), UpdateParams{
		Email:       req.Email,
		Role:        req.Role,
		Groups:      req.Groups,
		Permissions: req.Permissions,
	})
	if user == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such user")
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if !h.directory.ResetPassword(r.Context(), chi.URLParam(r, "id"), req.NewPassword) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such user")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reset": true})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.directory.Delete(r.Context(), chi.URLParam(r, "id")) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such user")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}
