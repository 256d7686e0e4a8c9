package mail

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"github.com/snowfall-guild/guilddesk/internal/rbac"
	"github.com/snowfall-guild/guilddesk/internal/shared"
	"github.com/snowfall-guild/guilddesk/internal/users"
)

// SystemSenderName labels messages authored by the system itself.
const SystemSenderName = "System"

// Roster supplies the account snapshot used to materialize global sends.
type Roster interface {
	List(ctx context.Context) []users.User
}

// Store is the process-wide station-mail store. All access goes through
// the mutex so the store stays safe under concurrent request handlers.
type Store struct {
	mu       sync.Mutex
	messages []*Message
	counter  uint64
	roster   Roster
	now      func() time.Time
	matcher  *search.Matcher
}

// NewStore constructs an empty store backed by the given roster.
func NewStore(roster Roster) *Store {
	return &Store{
		roster:  roster,
		now:     time.Now,
		matcher: search.New(language.Und, search.IgnoreCase),
	}
}

// SetClock overrides the store clock. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Create stores a new message from the given sender. A global send
// materializes its recipient list from the roster at creation time; users
// registered later do not receive it. Named recipients are accepted as is,
// without existence checks, so history survives account deletion.
func (s *Store) Create(ctx context.Context, req CreateRequest, sender *users.User) *Message {
	var recipients []Recipient
	if req.IsGlobal {
		for _, u := range s.roster.List(ctx) {
			recipients = append(recipients, Recipient{Username: u.Username, UserID: u.ID, Status: StatusUnread})
		}
	} else {
		for _, username := range req.Recipients {
			recipients = append(recipients, Recipient{Username: username, Status: StatusUnread})
		}
	}

	senderType := SenderSystem
	switch sender.Role {
	case rbac.RoleSuperAdmin:
		senderType = SenderSuperAdmin
	case rbac.RoleAdmin:
		senderType = SenderAdmin
	}

	return s.append(req, recipients, senderType, sender.Username, sender.ID)
}

// CreateSystem stores a message authored by the system.
func (s *Store) CreateSystem(ctx context.Context, req CreateRequest) *Message {
	recipients := make([]Recipient, 0, len(req.Recipients))
	for _, username := range req.Recipients {
		recipients = append(recipients, Recipient{Username: username, Status: StatusUnread})
	}
	return s.append(req, recipients, SenderSystem, SystemSenderName, "")
}

func (s *Store) append(req CreateRequest, recipients []Recipient, senderType SenderType, senderName, senderID string) *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	s.counter++
	msg := &Message{
		ID:         fmt.Sprintf("msg_%d_%d", now.UnixMilli(), s.counter),
		Title:      req.Title,
		Content:    req.Content,
		Category:   req.Category,
		Priority:   req.Priority,
		SenderType: senderType,
		SenderName: senderName,
		SenderID:   senderID,
		Recipients: recipients,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  req.ExpiresAt,
		IsGlobal:   req.IsGlobal,
		Metadata:   req.Metadata,
	}
	s.messages = append(s.messages, msg)
	return cloneMessage(msg)
}

// ListForUser returns the filtered, sorted, paginated messages addressed
// to the user, together with that user's stats.
func (s *Store) ListForUser(ctx context.Context, username string, params QueryParams) ListResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*Message
	for _, m := range s.messages {
		recipient := findRecipient(m, username)
		if recipient == nil {
			continue
		}
		if params.Status != "" && recipient.Status != params.Status {
			continue
		}
		if !s.matches(m, params, false) {
			continue
		}
		matched = append(matched, m)
	}

	sortByPriorityThenTime(matched)
	page, messages := paginateMessages(matched, params)
	return ListResult{
		Messages: messages,
		Total:    len(matched),
		Page:     page.Page,
		Limit:    page.PerPage,
		HasMore:  page.HasMore(),
		Stats:    s.statsForLocked(username),
	}
}

// ListAll returns every message matching the filters, unscoped to any
// recipient, with store-wide stats. Administrative use only.
func (s *Store) ListAll(ctx context.Context, params QueryParams) ListResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*Message
	for _, m := range s.messages {
		if !s.matches(m, params, true) {
			continue
		}
		matched = append(matched, m)
	}

	sortByPriorityThenTime(matched)
	page, messages := paginateMessages(matched, params)
	return ListResult{
		Messages: messages,
		Total:    len(matched),
		Page:     page.Page,
		Limit:    page.PerPage,
		HasMore:  page.HasMore(),
		Stats:    s.globalStatsLocked(),
	}
}

// MarkRead sets the recipient's entry to read and stamps the read time.
func (s *Store) MarkRead(ctx context.Context, messageID, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.findLocked(messageID)
	if msg == nil {
		return false
	}
	recipient := findRecipient(msg, username)
	if recipient == nil {
		return false
	}
	now := s.now().UTC()
	recipient.Status = StatusRead
	recipient.ReadAt = &now
	msg.UpdatedAt = now
	return true
}

// BatchUpdate applies the action to each listed message where the acting
// user is a recipient. Messages the user does not receive are skipped.
// Deleting removes only that user's recipient entry; a message left with
// no recipients is kept in the store.
func (s *Store) BatchUpdate(ctx context.Context, req BatchRequest, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, id := range req.MessageIDs {
		msg := s.findLocked(id)
		if msg == nil {
			continue
		}
		idx := -1
		for i := range msg.Recipients {
			if msg.Recipients[i].Username == username {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		switch req.Action {
		case ActionMarkRead:
			msg.Recipients[idx].Status = StatusRead
			readAt := now
			msg.Recipients[idx].ReadAt = &readAt
		case ActionMarkUnread:
			msg.Recipients[idx].Status = StatusUnread
			msg.Recipients[idx].ReadAt = nil
		case ActionArchive:
			msg.Recipients[idx].Status = StatusArchived
		case ActionDelete:
			msg.Recipients = append(msg.Recipients[:idx], msg.Recipients[idx+1:]...)
		}
		msg.UpdatedAt = now
	}
	return true
}

// MarkAllRead sets every unread recipient entry for the user to read.
// Calling it again is a no-op.
func (s *Store) MarkAllRead(ctx context.Context, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, msg := range s.messages {
		recipient := findRecipient(msg, username)
		if recipient == nil || recipient.Status != StatusUnread {
			continue
		}
		recipient.Status = StatusRead
		readAt := now
		recipient.ReadAt = &readAt
		msg.UpdatedAt = now
	}
	return true
}

// Delete removes the whole message record regardless of recipients.
// Administrative use only.
func (s *Store) Delete(ctx context.Context, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.messages {
		if msg.ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns a copy of the message with the given ID.
func (s *Store) Find(ctx context.Context, messageID string) (*Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.findLocked(messageID); msg != nil {
		return cloneMessage(msg), true
	}
	return nil, false
}

// StatsFor aggregates status, category, and priority counts across the
// user's messages.
func (s *Store) StatsFor(ctx context.Context, username string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsForLocked(username)
}

// GlobalStats aggregates counts across all messages and all recipients.
func (s *Store) GlobalStats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalStatsLocked()
}

func (s *Store) statsForLocked(username string) Stats {
	stats := newStats()
	for _, msg := range s.messages {
		recipient := findRecipient(msg, username)
		if recipient == nil {
			continue
		}
		stats.Total++
		switch recipient.Status {
		case StatusUnread:
			stats.Unread++
		case StatusRead:
			stats.Read++
		case StatusArchived:
			stats.Archived++
		}
		stats.ByCategory[msg.Category]++
		stats.ByPriority[msg.Priority]++
	}
	return stats
}

func (s *Store) globalStatsLocked() Stats {
	stats := newStats()
	stats.Total = len(s.messages)
	for _, msg := range s.messages {
		stats.ByCategory[msg.Category]++
		stats.ByPriority[msg.Priority]++
		for i := range msg.Recipients {
			switch msg.Recipients[i].Status {
			case StatusUnread:
				stats.Unread++
			case StatusRead:
				stats.Read++
			case StatusArchived:
				stats.Archived++
			}
		}
	}
	return stats
}

// matches applies the recipient-independent filters. Sender name is only
// searched on administrative listings.
func (s *Store) matches(m *Message, params QueryParams, searchSender bool) bool {
	if params.Category != "" && m.Category != params.Category {
		return false
	}
	if params.Priority != "" && m.Priority != params.Priority {
		return false
	}
	if params.SenderType != "" && m.SenderType != params.SenderType {
		return false
	}
	if params.StartDate != nil && m.CreatedAt.Before(*params.StartDate) {
		return false
	}
	if params.EndDate != nil && m.CreatedAt.After(*params.EndDate) {
		return false
	}
	if params.Search != "" {
		if !s.contains(m.Title, params.Search) && !s.contains(m.Content, params.Search) &&
			!(searchSender && s.contains(m.SenderName, params.Search)) {
			return false
		}
	}
	return true
}

func (s *Store) contains(haystack, needle string) bool {
	start, _ := s.matcher.IndexString(haystack, needle)
	return start >= 0
}

func (s *Store) findLocked(messageID string) *Message {
	for _, msg := range s.messages {
		if msg.ID == messageID {
			return msg
		}
	}
	return nil
}

func findRecipient(m *Message, username string) *Recipient {
	for i := range m.Recipients {
		if m.Recipients[i].Username == username {
			return &m.Recipients[i]
		}
	}
	return nil
}

// sortByPriorityThenTime orders urgent first, then newest first within the
// same priority. The sort is stable so identical inputs page identically.
func sortByPriorityThenTime(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		pi, pj := priorityRank[messages[i].Priority], priorityRank[messages[j].Priority]
		if pi != pj {
			return pi > pj
		}
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
}

func paginateMessages(matched []*Message, params QueryParams) (shared.Pagination, []Message) {
	page := shared.NewPagination(params.Page, params.Limit, len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]Message, 0, end-start)
	for _, msg := range matched[start:end] {
		out = append(out, *cloneMessage(msg))
	}
	return page, out
}

func cloneMessage(m *Message) *Message {
	clone := *m
	clone.Recipients = make([]Recipient, len(m.Recipients))
	copy(clone.Recipients, m.Recipients)
	for i := range clone.Recipients {
		if m.Recipients[i].ReadAt != nil {
			t := *m.Recipients[i].ReadAt
			clone.Recipients[i].ReadAt = &t
		}
	}
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		clone.ExpiresAt = &t
	}
	if m.Metadata != nil {
		md := *m.Metadata
		md.OverdueUsernames = append([]string(nil), m.Metadata.OverdueUsernames...)
		clone.Metadata = &md
	}
	return &clone
}
