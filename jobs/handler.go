package jobs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/snowfall-guild/guilddesk/internal/platform/httpx"
	"github.com/snowfall-guild/guilddesk/internal/shared"
)

// Enqueuer submits tasks to the queue. Satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Handler exposes queue administration endpoints.
type Handler struct {
	client    Enqueuer
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs a jobs Handler.
func NewHandler(client Enqueuer, inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, inspector: inspector, logger: logger}
}

// MountRoutes registers job trigger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/overdue-reminders", h.enqueueOverdueReminders)
	r.Post("/system-report", h.enqueueSystemReport)
	r.Get("/queue", h.queueInfo)
}

func (h *Handler) enqueueOverdueReminders(w http.ResponseWriter, r *http.Request) {
	initiatedBy := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		initiatedBy = sess.User()
	}
	task, err := NewOverdueRemindersTask(initiatedBy)
	if err != nil {
		h.logger.Error("build overdue reminders task", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	info, err := h.client.Enqueue(task, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
	if err != nil {
		h.logger.Error("enqueue overdue reminders", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"taskId": info.ID, "queue": info.Queue})
}

func (h *Handler) enqueueSystemReport(w http.ResponseWriter, r *http.Request) {
	task, err := NewSystemReportTask("monthly")
	if err != nil {
		h.logger.Error("build system report task", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	info, err := h.client.Enqueue(task, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
	if err != nil {
		h.logger.Error("enqueue system report", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"taskId": info.ID, "queue": info.Queue})
}

func (h *Handler) queueInfo(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "inspector not configured")
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Error("queue info", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"queue":     info.Queue,
		"size":      info.Size,
		"pending":   info.Pending,
		"active":    info.Active,
		"scheduled": info.Scheduled,
		"retry":     info.Retry,
		"completed": info.Completed,
	})
}
