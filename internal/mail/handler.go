package mail

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/snowfall-guild/guilddesk/internal/observability"
	"github.com/snowfall-guild/guilddesk/internal/platform/httpx"
	"github.com/snowfall-guild/guilddesk/internal/rbac"
	"github.com/snowfall-guild/guilddesk/internal/shared"
	"github.com/snowfall-guild/guilddesk/internal/users"
)

// Handler wires HTTP endpoints for the station-mail system.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	composer  *Composer
	directory *users.Directory
	rbac      rbac.Middleware
	metrics   *observability.Metrics
	validator *validator.Validate
	flight    singleflight.Group
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store *Store, composer *Composer, directory *users.Directory, rbacMW rbac.Middleware, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		store:     store,
		composer:  composer,
		directory: directory,
		rbac:      rbacMW,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers mail routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listMine)
	r.Get("/badges", h.badges)
	r.Get("/stats", h.stats)
	r.Post("/batch", h.batchUpdate)
	r.Post("/read-all", h.markAllRead)
	r.Post("/{id}/read", h.markRead)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermSystemLogs, rbac.PermSystemConfig))
		r.Get("/all", h.listAll)
		r.Post("/", h.create)
		r.Delete("/{id}", h.deleteMessage)
		r.Get("/overdue", h.listOverdue)
		r.Post("/reminders/batch", h.sendBatchReminders)
	})
}

func (h *Handler) listOverdue(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"overdueUsers": h.composer.DetectOverdueUsers(r.Context()),
	})
}

type batchReminderRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (h *Handler) sendBatchReminders(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	var req batchReminderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "title and content are required")
		return
	}
	sent := h.composer.SendBatchReminders(r.Context(), req.Title, req.Content, user)
	for range sent {
		h.metrics.CountMailCreated()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sent": len(sent), "messages": sent})
}

func (h *Handler) currentUser(r *http.Request) (*users.User, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return nil, false
	}
	return h.directory.FindByID(r.Context(), sess.User())
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	result := h.store.ListForUser(r.Context(), user.Username, parseQueryParams(r))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	result := h.store.ListAll(r.Context(), parseQueryParams(r))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) badges(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	// The dashboard polls this endpoint; collapse concurrent recomputes
	// for the same user into one store scan.
	badges, _, _ := h.flight.Do(user.Username, func() (any, error) {
		return h.store.Badges(r.Context(), user.Username), nil
	})
	httpx.JSON(w, http.StatusOK, map[string]any{"badges": badges})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	httpx.JSON(w, http.StatusOK, h.store.StatsFor(r.Context(), user.Username))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if fields := ValidateCreate(req, time.Now()); len(fields) > 0 {
		httpx.JSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
		return
	}
	msg := h.store.Create(r.Context(), req, user)
	h.metrics.CountMailCreated()
	httpx.JSON(w, http.StatusCreated, msg)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	if !h.store.MarkRead(r.Context(), chi.URLParam(r, "id"), user.Username) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "message not found for this user")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) batchUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	var req BatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		detail := "invalid batch request"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			detail = verrs[0].Error()
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", detail)
		return
	}
	h.store.BatchUpdate(r.Context(), req, user.Username)
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	h.store.MarkAllRead(r.Context(), user.Username)
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	if !h.store.Delete(r.Context(), chi.URLParam(r, "id")) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no such message")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func parseQueryParams(r *http.Request) QueryParams {
	q := r.URL.Query()
	params := QueryParams{
		Category:   Category(q.Get("category")),
		Status:     Status(q.Get("status")),
		Priority:   Priority(q.Get("priority")),
		SenderType: SenderType(q.Get("senderType")),
		Search:     q.Get("search"),
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Limit = n
		}
	}
	if v := q.Get("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.StartDate = &t
		}
	}
	if v := q.Get("endDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.EndDate = &t
		}
	}
	return params
}
