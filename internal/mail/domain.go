// Package mail implements the station-mail system: the in-memory message
// store, per-recipient read state, querying, stats, and notification badges.
package mail

import "time"

// Category classifies a message.
type Category string

const (
	CategorySystem       Category = "system"
	CategoryAdmin        Category = "admin"
	CategoryNotification Category = "notification"
	CategoryReminder     Category = "reminder"
	CategoryAnnouncement Category = "announcement"
)

// Categories returns the category enumeration in display order.
func Categories() []Category {
	return []Category{CategorySystem, CategoryAdmin, CategoryNotification, CategoryReminder, CategoryAnnouncement}
}

// Priority orders messages in listings; urgent sorts first.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities returns the priority enumeration from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}
}

var priorityRank = map[Priority]int{
	PriorityUrgent: 4,
	PriorityHigh:   3,
	PriorityNormal: 2,
	PriorityLow:    1,
}

// Status is the per-recipient read state.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusArchived Status = "archived"
)

// SenderType describes who authored a message.
type SenderType string

const (
	SenderSystem     SenderType = "system"
	SenderSuperAdmin SenderType = "super_admin"
	SenderAdmin      SenderType = "admin"
)

// Recipient tracks one user's view of a message.
type Recipient struct {
	Username string     `json:"username"`
	UserID   string     `json:"userId,omitempty"`
	Status   Status     `json:"status"`
	ReadAt   *time.Time `json:"readAt,omitempty"`
}

// MetadataKind tags the metadata variant attached to a message.
type MetadataKind string

const (
	MetadataOverdueReport MetadataKind = "overdue_report"
	MetadataReminder      MetadataKind = "reminder"
)

// Metadata is the optional, kind-tagged payload on a message.
type Metadata struct {
	Kind             MetadataKind `json:"kind"`
	ReminderType     string       `json:"reminderType,omitempty"`
	OverdueUsernames []string     `json:"overdueUsers,omitempty"`
	OverdueCount     int          `json:"overdueUserCount,omitempty"`
}

// Message is one station-mail record. Read and archive state lives on the
// recipient entries, never on the message itself.
type Message struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	Category   Category    `json:"category"`
	Priority   Priority    `json:"priority"`
	SenderType SenderType  `json:"senderType"`
	SenderName string      `json:"senderName"`
	SenderID   string      `json:"senderId,omitempty"`
	Recipients []Recipient `json:"recipients"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	ExpiresAt  *time.Time  `json:"expiresAt,omitempty"`
	IsGlobal   bool        `json:"isGlobal"`
	Metadata   *Metadata   `json:"metadata,omitempty"`
}

// CreateRequest carries the fields for a new message.
type CreateRequest struct {
	Title      string     `json:"title" validate:"required"`
	Content    string     `json:"content" validate:"required"`
	Category   Category   `json:"category" validate:"required,oneof=system admin notification reminder announcement"`
	Priority   Priority   `json:"priority" validate:"required,oneof=low normal high urgent"`
	Recipients []string   `json:"recipients"`
	IsGlobal   bool       `json:"isGlobal"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	Metadata   *Metadata  `json:"metadata"`
}

// BatchAction is one of the per-recipient batch operations.
type BatchAction string

const (
	ActionMarkRead   BatchAction = "markRead"
	ActionMarkUnread BatchAction = "markUnread"
	ActionArchive    BatchAction = "archive"
	ActionDelete     BatchAction = "delete"
)

// BatchRequest applies one action to several messages for the acting user.
type BatchRequest struct {
	MessageIDs []string    `json:"messageIds" validate:"required,min=1"`
	Action     BatchAction `json:"action" validate:"required,oneof=markRead markUnread archive delete"`
}

// QueryParams filters a message listing. Zero values mean "no filter".
type QueryParams struct {
	Category   Category
	Status     Status
	Priority   Priority
	SenderType SenderType
	StartDate  *time.Time
	EndDate    *time.Time
	Search     string
	Page       int
	Limit      int
}

// Stats aggregates message counts for one user or for the whole store.
type Stats struct {
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
	Read       int              `json:"read"`
	Archived   int              `json:"archived"`
	ByCategory map[Category]int `json:"byCategory"`
	ByPriority map[Priority]int `json:"byPriority"`
}

// ListResult is a page of messages plus listing metadata.
type ListResult struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	HasMore  bool      `json:"hasMore"`
	Stats    Stats     `json:"stats"`
}

// Badge is the derived per-category unread indicator. UnreadCount and
// UrgentCount repeat the store-wide totals on every entry; Count and
// HasUrgent are per category.
type Badge struct {
	Category    Category `json:"category"`
	Count       int      `json:"count"`
	HasUrgent   bool     `json:"hasUrgent"`
	UnreadCount int      `json:"unreadCount"`
	UrgentCount int      `json:"urgentCount"`
}

func newStats() Stats {
	stats := Stats{
		ByCategory: make(map[Category]int, len(Categories())),
		ByPriority: make(map[Priority]int, len(Priorities())),
	}
	for _, c := range Categories() {
		stats.ByCategory[c] = 0
	}
	for _, p := range Priorities() {
		stats.ByPriority[p] = 0
	}
	return stats
}
