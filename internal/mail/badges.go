package mail

import "context"

// Badges derives the per-category unread indicators for a user. Only
// categories with at least one unread message yield an entry. Every entry
// repeats the user's total unread and urgent counts next to its own
// per-category count, matching what the dashboard renders.
func (s *Store) Badges(ctx context.Context, username string) []Badge {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory := make(map[Category]*Badge, len(Categories()))
	for _, c := range Categories() {
		byCategory[c] = &Badge{Category: c}
	}

	totalUnread := 0
	totalUrgent := 0
	for _, msg := range s.messages {
		recipient := findRecipient(msg, username)
		if recipient == nil || recipient.Status != StatusUnread {
			continue
		}
		badge := byCategory[msg.Category]
		badge.Count++
		totalUnread++
		if msg.Priority == PriorityUrgent {
			badge.HasUrgent = true
			totalUrgent++
		}
	}

	out := make([]Badge, 0, len(Categories()))
	for _, c := range Categories() {
		badge := byCategory[c]
		if badge.Count == 0 {
			continue
		}
		badge.UnreadCount = totalUnread
		badge.UrgentCount = totalUrgent
		out = append(out, *badge)
	}
	return out
}
