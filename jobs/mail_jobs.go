package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/snowfall-guild/guilddesk/internal/mail"
)

// MailJobs processes the station-mail background tasks.
type MailJobs struct {
	composer *mail.Composer
	logger   *slog.Logger
}

// NewMailJobs constructs the mail job handlers.
func NewMailJobs(composer *mail.Composer, logger *slog.Logger) *MailJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailJobs{composer: composer, logger: logger}
}

// HandleOverdueReminders processes TaskOverdueReminders tasks.
func (j *MailJobs) HandleOverdueReminders(ctx context.Context, t *asynq.Task) error {
	var payload OverdueRemindersPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	sent := j.composer.SendOverdueReminders(ctx)
	j.logger.Info("overdue reminders sent",
		slog.Int("count", len(sent)),
		slog.String("initiated_by", payload.InitiatedBy),
	)
	return nil
}

// HandleSystemReport processes TaskSystemReport tasks.
func (j *MailJobs) HandleSystemReport(ctx context.Context, t *asynq.Task) error {
	var payload SystemReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	msg := j.composer.SendSystemReportToAdmins(ctx)
	if msg == nil {
		j.logger.Info("system report skipped, nothing to report",
			slog.String("report_type", payload.ReportType))
		return nil
	}
	j.logger.Info("system report delivered",
		slog.String("message_id", msg.ID),
		slog.Int("recipients", len(msg.Recipients)),
	)
	return nil
}
