package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrSuperAdminCodeRequired is returned when the reserved super-admin
// username is used without a secondary verification code.
var ErrSuperAdminCodeRequired = errors.New("super-admin login requires the verification code")

// LockedError reports a login rejected because the account is still locked.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

// TooManyAttemptsError reports the failure that tripped the lockout threshold.
type TooManyAttemptsError struct {
	Until time.Time
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many failed verification attempts, account locked until %s", e.Until.Format(time.RFC3339))
}

// WrongCodeError reports an incorrect secondary verification code.
type WrongCodeError struct {
	AttemptsRemaining int
}

func (e *WrongCodeError) Error() string {
	return fmt.Sprintf("wrong verification code, %d attempts remaining", e.AttemptsRemaining)
}
