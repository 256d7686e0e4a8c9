// Package jobs wires background task processing for guilddesk.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueReminders delivers renewal reminders to overdue members.
	TaskOverdueReminders = "mail:overdue_reminders"
	// TaskSystemReport delivers the overdue report to the super admins.
	TaskSystemReport = "mail:system_report"
)

// OverdueRemindersPayload describes a reminder run.
type OverdueRemindersPayload struct {
	InitiatedBy string `json:"initiated_by"`
}

// SystemReportPayload describes a report run.
type SystemReportPayload struct {
	ReportType string `json:"report_type"`
}

// NewOverdueRemindersTask constructs an Asynq task for a reminder run.
func NewOverdueRemindersTask(initiatedBy string) (*asynq.Task, error) {
	data, err := json.Marshal(OverdueRemindersPayload{InitiatedBy: initiatedBy})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueReminders, data), nil
}

// NewSystemReportTask constructs an Asynq task for a report run.
func NewSystemReportTask(reportType string) (*asynq.Task, error) {
	data, err := json.Marshal(SystemReportPayload{ReportType: reportType})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSystemReport, data), nil
}
