package auth

import (
	"sync"
	"time"
)

type attempt struct {
	username       string
	failedAttempts int
	lastFailedAt   time.Time
	blockedUntil   time.Time
}

// BlockStatus is the result of a lockout check.
type BlockStatus struct {
	Blocked      bool
	BlockedUntil time.Time
}

// FailureResult is the result of recording a verification failure.
type FailureResult struct {
	FailedAttempts int
	Blocked        bool
	BlockedUntil   time.Time
}

// Lockout tracks failed secondary verification attempts per username.
// Entries are created lazily on first failure and removed on success;
// an elapsed block is cleared lazily by the next IsBlocked check.
type Lockout struct {
	mu       sync.Mutex
	attempts []*attempt
	now      func() time.Time
}

// NewLockout constructs an empty tracker.
func NewLockout() *Lockout {
	return &Lockout{now: time.Now}
}

// SetClock overrides the tracker clock. Intended for tests.
func (l *Lockout) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// IsBlocked reports whether the username is currently blocked. An expired
// block is cleared as a side effect of this check.
func (l *Lockout) IsBlocked(username string) BlockStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.find(username)
	if entry == nil || entry.blockedUntil.IsZero() {
		return BlockStatus{}
	}
	if l.now().Before(entry.blockedUntil) {
		return BlockStatus{Blocked: true, BlockedUntil: entry.blockedUntil}
	}
	entry.blockedUntil = time.Time{}
	entry.failedAttempts = 0
	return BlockStatus{}
}

// RecordFailure increments the failure counter for the username, creating
// the entry when absent. Reaching the threshold sets the block window.
func (l *Lockout) RecordFailure(username string) FailureResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.find(username)
	if entry == nil {
		entry = &attempt{username: username}
		l.attempts = append(l.attempts, entry)
	}
	entry.failedAttempts++
	entry.lastFailedAt = l.now()
	if entry.failedAttempts >= MaxCodeFailures {
		entry.blockedUntil = l.now().Add(LockoutDuration)
		return FailureResult{
			FailedAttempts: entry.failedAttempts,
			Blocked:        true,
			BlockedUntil:   entry.blockedUntil,
		}
	}
	return FailureResult{FailedAttempts: entry.failedAttempts}
}

// ResetFailures removes the tracking entry for the username. It is a no-op
// when no entry exists.
func (l *Lockout) ResetFailures(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.attempts {
		if entry.username == username {
			l.attempts = append(l.attempts[:i], l.attempts[i+1:]...)
			return
		}
	}
}

func (l *Lockout) find(username string) *attempt {
	for _, entry := range l.attempts {
		if entry.username == username {
			return entry
		}
	}
	return nil
}
