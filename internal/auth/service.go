package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/snowfall-guild/guilddesk/internal/rbac"
	"github.com/snowfall-guild/guilddesk/internal/shared"
	"github.com/snowfall-guild/guilddesk/internal/users"
)

// ErrWeakPassword rejects a password change that fails the strength policy.
var ErrWeakPassword = errors.New("password does not meet the strength policy")

// Service wraps the login and password business rules.
type Service struct {
	directory *users.Directory
	lockout   *Lockout
}

// NewService constructs a new Service.
func NewService(directory *users.Directory, lockout *Lockout) *Service {
	return &Service{directory: directory, lockout: lockout}
}

// Lockout exposes the tracker, for the worker and for tests.
func (s *Service) Lockout() *Lockout {
	return s.lockout
}

// Authenticate validates the supplied credentials and returns the account.
//
// With a secondary code the login is treated as a super-admin elevation:
// the code and the bootstrap credentials must all match. Without a code
// only non-super-admin accounts are considered, and the reserved
// super-admin username is rejected with ErrSuperAdminCodeRequired.
func (s *Service) Authenticate(ctx context.Context, username, password, code string) (*users.User, error) {
	if code != "" {
		if status := s.lockout.IsBlocked(username); status.Blocked {
			return nil, &LockedError{Until: status.BlockedUntil}
		}
		if code == SuperAdminCode && username == DefaultAdminUsername && password == DefaultAdminPassword {
			s.lockout.ResetFailures(username)
			admin, ok := s.directory.FindSuperAdmin(ctx)
			if !ok {
				return nil, shared.ErrInvalidCredentials
			}
			s.directory.RecordLogin(ctx, admin.ID)
			return admin, nil
		}
		result := s.lockout.RecordFailure(username)
		if result.Blocked {
			return nil, &TooManyAttemptsError{Until: result.BlockedUntil}
		}
		return nil, &WrongCodeError{AttemptsRemaining: MaxCodeFailures - result.FailedAttempts}
	}

	user, ok := s.directory.FindByUsername(ctx, username)
	if !ok || user.Role == rbac.RoleSuperAdmin {
		if username == DefaultAdminUsername {
			return nil, ErrSuperAdminCodeRequired
		}
		return nil, shared.ErrInvalidCredentials
	}

	if user.DefaultPassword {
		if password == DefaultAdminPassword {
			s.directory.RecordLogin(ctx, user.ID)
			return user, nil
		}
		return nil, shared.ErrInvalidCredentials
	}

	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err == nil {
			s.directory.RecordLogin(ctx, user.ID)
			return user, nil
		}
	}
	return nil, shared.ErrInvalidCredentials
}

// ChangePassword verifies the current credential, checks the new password
// against the strength policy, and stores its hash.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, ok := s.directory.FindByID(ctx, userID)
	if !ok {
		return shared.ErrNotFound
	}
	if user.DefaultPassword {
		if current != DefaultAdminPassword {
			return shared.ErrInvalidCredentials
		}
	} else {
		if user.PasswordHash == "" {
			return shared.ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
			return shared.ErrInvalidCredentials
		}
	}
	if !CheckPasswordStrength(next).Valid {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if !s.directory.SetPassword(ctx, userID, string(hash)) {
		return shared.ErrNotFound
	}
	return nil
}
