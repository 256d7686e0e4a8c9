package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/snowfall-guild/guilddesk/internal/rbac"
	"github.com/snowfall-guild/guilddesk/internal/shared"
	"github.com/snowfall-guild/guilddesk/internal/users"
)

func newTestService(t *testing.T) (*Service, *users.Directory) {
	t.Helper()
	directory := users.NewDirectory()
	return NewService(directory, NewLockout()), directory
}

func TestAuthenticateSuperAdminElevation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Authenticate(ctx, DefaultAdminUsername, DefaultAdminPassword, SuperAdminCode)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSuperAdmin, user.Role)
	assert.Equal(t, users.BootstrapUsername, user.Username)
	assert.True(t, user.RequirePasswordChange)
	assert.NotNil(t, user.LastLoginAt)
}

func TestAuthenticateWrongCodeCountsDown(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Authenticate(ctx, DefaultAdminUsername, DefaultAdminPassword, "wrong")
	var wrongCode *WrongCodeError
	require.ErrorAs(t, err, &wrongCode)
	assert.Equal(t, 4, wrongCode.AttemptsRemaining)

	_, err = service.Authenticate(ctx, DefaultAdminUsername, DefaultAdminPassword, "wrong")
	require.ErrorAs(t, err, &wrongCode)
	assert.Equal(t, 3, wrongCode.AttemptsRemaining)
}

func TestAuthenticateLocksAfterRepeatedWrongCodes(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	var lastErr error
	for i := 0; i < MaxCodeFailures; i++ {
		_, lastErr = service.Authenticate(ctx, DefaultAdminUsername, DefaultAdminPassword, "wrong")
	}
	var tooMany *TooManyAttemptsError
	require.ErrorAs(t, lastErr, &tooMany)
	assert.False(t, tooMany.Until.IsZero())

	// Even the correct code is rejected while the block holds.
	_, err := service.Authenticate(ctx, DefaultAdminUsername, DefaultAdminPassword, SuperAdminCode)
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, tooMany.Until, locked.Until)
}

func TestAuthenticateSuccessResetsFailures(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Authenticate(ctx, DefaultAdminUsername, DefaultAdminPassword, "wrong")
	require.Error(t, err)

	_, err = service.Authenticate(ctx, DefaultAdminUsername, DefaultAdminPassword, SuperAdminCode)
	require.NoError(t, err)

	// Counter starts over after the successful elevation.
	_, err = service.Authenticate(ctx, DefaultAdminUsername, DefaultAdminPassword, "wrong")
	var wrongCode *WrongCodeError
	require.ErrorAs(t, err, &wrongCode)
	assert.Equal(t, 4, wrongCode.AttemptsRemaining)
}

func TestAuthenticateSuperAdminWithoutCode(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Authenticate(context.Background(), DefaultAdminUsername, DefaultAdminPassword, "")
	assert.ErrorIs(t, err, ErrSuperAdminCodeRequired)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Authenticate(context.Background(), "nobody", "whatever", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateDefaultPassword(t *testing.T) {
	service, directory := newTestService(t)
	ctx := context.Background()

	created, err := directory.Create(ctx, users.CreateParams{Username: "karin", Role: rbac.RoleModerator})
	require.NoError(t, err)

	user, err := service.Authenticate(ctx, "karin", DefaultAdminPassword, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.True(t, user.DefaultPassword)

	_, err = service.Authenticate(ctx, "karin", "not-the-default", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateHashedPassword(t *testing.T) {
	service, directory := newTestService(t)
	ctx := context.Background()

	created, err := directory.Create(ctx, users.CreateParams{Username: "karin", Role: rbac.RoleUser})
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ng!pass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.True(t, directory.SetPassword(ctx, created.ID, string(hash)))

	user, err := service.Authenticate(ctx, "karin", "Str0ng!pass", "")
	require.NoError(t, err)
	assert.False(t, user.DefaultPassword)

	// The shared default no longer works once a real password is set.
	_, err = service.Authenticate(ctx, "karin", DefaultAdminPassword, "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	service, directory := newTestService(t)
	ctx := context.Background()

	created, err := directory.Create(ctx, users.CreateParams{Username: "karin", Role: rbac.RoleUser})
	require.NoError(t, err)

	err = service.ChangePassword(ctx, created.ID, "wrong-current", "Str0ng!pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = service.ChangePassword(ctx, created.ID, DefaultAdminPassword, "weak")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, service.ChangePassword(ctx, created.ID, DefaultAdminPassword, "Str0ng!pass"))

	updated, ok := directory.FindByID(ctx, created.ID)
	require.True(t, ok)
	assert.False(t, updated.DefaultPassword)
	assert.False(t, updated.RequirePasswordChange)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("Str0ng!pass")))

	// Subsequent changes verify against the stored hash.
	require.NoError(t, service.ChangePassword(ctx, created.ID, "Str0ng!pass", "An0ther!pass"))
}

func TestChangePasswordUnknownUser(t *testing.T) {
	service, _ := newTestService(t)

	err := service.ChangePassword(context.Background(), "missing", DefaultAdminPassword, "Str0ng!pass")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
