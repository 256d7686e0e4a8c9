package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snowfall-guild/guilddesk/internal/rbac"
	"github.com/snowfall-guild/guilddesk/internal/users"
)

// OverdueUser describes a member whose dues lapsed.
type OverdueUser struct {
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	OverdueDate    time.Time `json:"overdueDate"`
	MembershipType string    `json:"membershipType"`
	DaysOverdue    int       `json:"daysOverdue"`
}

// SystemReport summarises overdue membership for the admin mailbox.
type SystemReport struct {
	ReportDate   time.Time     `json:"reportDate"`
	OverdueUsers []OverdueUser `json:"overdueUsers"`
	TotalOverdue int           `json:"totalOverdue"`
	ReportType   string        `json:"reportType"`
}

// Composer layers reminder and report generation on top of the store.
// Overdue detection is a fixture standing in for a billing backend.
type Composer struct {
	store  *Store
	roster Roster
	now    func() time.Time
}

// NewComposer constructs a Composer.
func NewComposer(store *Store, roster Roster) *Composer {
	return &Composer{store: store, roster: roster, now: time.Now}
}

// SetClock overrides the composer clock. Intended for tests.
func (c *Composer) SetClock(now func() time.Time) {
	c.now = now
}

// DetectOverdueUsers returns the members with lapsed dues.
// TODO: replace the fixture with the billing integration once the guild
// treasury service exposes dues data.
func (c *Composer) DetectOverdueUsers(ctx context.Context) []OverdueUser {
	now := c.now()
	return []OverdueUser{
		{
			Username:       "user1",
			Email:          "user1@example.com",
			OverdueDate:    now.Add(-7 * 24 * time.Hour),
			MembershipType: "annual",
			DaysOverdue:    7,
		},
		{
			Username:       "user2",
			Email:          "user2@example.com",
			OverdueDate:    now.Add(-3 * 24 * time.Hour),
			MembershipType: "monthly",
			DaysOverdue:    3,
		},
	}
}

// GenerateSystemReport assembles the overdue report.
func (c *Composer) GenerateSystemReport(ctx context.Context) SystemReport {
	overdue := c.DetectOverdueUsers(ctx)
	return SystemReport{
		ReportDate:   c.now(),
		OverdueUsers: overdue,
		TotalOverdue: len(overdue),
		ReportType:   "monthly",
	}
}

// SendOverdueReminders sends one reminder message per overdue member.
func (c *Composer) SendOverdueReminders(ctx context.Context) []*Message {
	var sent []*Message
	for _, user := range c.DetectOverdueUsers(ctx) {
		msg := c.store.CreateSystem(ctx, CreateRequest{
			Title: "Membership renewal reminder",
			Content: fmt.Sprintf(
				"Dear %s, your %s membership is %d days overdue. Please renew to keep your member benefits.",
				user.Username, user.MembershipType, user.DaysOverdue,
			),
			Category:   CategoryReminder,
			Priority:   PriorityHigh,
			Recipients: []string{user.Username},
			Metadata: &Metadata{
				Kind:         MetadataReminder,
				ReminderType: "overdue",
			},
		})
		sent = append(sent, msg)
	}
	return sent
}

// SendSystemReportToAdmins delivers the overdue report to every super
// admin. Returns nil when there is nothing to report or nobody to tell.
func (c *Composer) SendSystemReportToAdmins(ctx context.Context) *Message {
	report := c.GenerateSystemReport(ctx)
	if report.TotalOverdue == 0 {
		return nil
	}

	var admins []string
	for _, u := range c.roster.List(ctx) {
		if u.Role == rbac.RoleSuperAdmin {
			admins = append(admins, u.Username)
		}
	}
	if len(admins) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Monthly system report\n\nOverdue members: %d\n\nDetails:\n", report.TotalOverdue)
	usernames := make([]string, 0, len(report.OverdueUsers))
	for _, u := range report.OverdueUsers {
		fmt.Fprintf(&b, "- %s (%s): %d days overdue\n", u.Username, u.MembershipType, u.DaysOverdue)
		usernames = append(usernames, u.Username)
	}

	return c.store.CreateSystem(ctx, CreateRequest{
		Title:      fmt.Sprintf("System report %s: overdue members", report.ReportDate.Format("2006-01-02")),
		Content:    b.String(),
		Category:   CategorySystem,
		Priority:   PriorityNormal,
		Recipients: admins,
		Metadata: &Metadata{
			Kind:             MetadataOverdueReport,
			OverdueUsernames: usernames,
			OverdueCount:     report.TotalOverdue,
		},
	})
}

// SendBatchReminders sends a single reminder, authored by the given
// sender, addressed to every overdue member at once.
func (c *Composer) SendBatchReminders(ctx context.Context, title, content string, sender *users.User) []*Message {
	overdue := c.DetectOverdueUsers(ctx)
	if len(overdue) == 0 {
		return nil
	}

	usernames := make([]string, 0, len(overdue))
	for _, u := range overdue {
		usernames = append(usernames, u.Username)
	}

	msg := c.store.Create(ctx, CreateRequest{
		Title:      title,
		Content:    content,
		Category:   CategoryReminder,
		Priority:   PriorityHigh,
		Recipients: usernames,
		Metadata: &Metadata{
			Kind:             MetadataReminder,
			ReminderType:     "overdue",
			OverdueUsernames: usernames,
			OverdueCount:     len(overdue),
		},
	}, sender)
	return []*Message{msg}
}
