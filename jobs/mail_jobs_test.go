package jobs

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowfall-guild/guilddesk/internal/mail"
	"github.com/snowfall-guild/guilddesk/internal/users"
	_ "github.com/snowfall-guild/guilddesk/testing"
)

func newJobFixture(t *testing.T) (*MailJobs, *mail.Store, *users.Directory) {
	t.Helper()
	directory := users.NewDirectory()
	store := mail.NewStore(directory)
	composer := mail.NewComposer(store, directory)
	return NewMailJobs(composer, nil), store, directory
}

func TestHandleOverdueReminders(t *testing.T) {
	jobsHandler, store, _ := newJobFixture(t)
	ctx := context.Background()

	task, err := NewOverdueRemindersTask("scheduler")
	require.NoError(t, err)
	require.NoError(t, jobsHandler.HandleOverdueReminders(ctx, task))

	// One reminder per overdue member lands in the store.
	assert.Equal(t, 2, store.GlobalStats(ctx).Total)
}

func TestHandleOverdueRemindersBadPayload(t *testing.T) {
	jobsHandler, store, _ := newJobFixture(t)
	ctx := context.Background()

	task := asynq.NewTask(TaskOverdueReminders, []byte("{not json"))
	err := jobsHandler.HandleOverdueReminders(ctx, task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 0, store.GlobalStats(ctx).Total)
}

func TestHandleSystemReport(t *testing.T) {
	jobsHandler, store, _ := newJobFixture(t)
	ctx := context.Background()

	task, err := NewSystemReportTask("monthly")
	require.NoError(t, err)
	require.NoError(t, jobsHandler.HandleSystemReport(ctx, task))

	// The bootstrap super admin receives the report.
	result := store.ListForUser(ctx, users.BootstrapUsername, mail.QueryParams{})
	require.Len(t, result.Messages, 1)
	assert.Equal(t, mail.CategorySystem, result.Messages[0].Category)
}

func TestHandleSystemReportBadPayload(t *testing.T) {
	jobsHandler, _, _ := newJobFixture(t)

	task := asynq.NewTask(TaskSystemReport, []byte("nope"))
	err := jobsHandler.HandleSystemReport(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
