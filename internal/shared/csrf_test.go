package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenLifecycle(t *testing.T) {
	manager := NewCSRFManager("csrfsecret")
	ctx := context.Background()
	sess := &Session{ID: "sess-1"}

	token, err := manager.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// The token is stable for the lifetime of the session.
	again, err := manager.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, manager.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, manager.VerifyToken(ctx, sess, "tampered"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, manager.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
}

func TestCSRFVerifyWithoutSessionToken(t *testing.T) {
	manager := NewCSRFManager("csrfsecret")
	ctx := context.Background()

	assert.ErrorIs(t, manager.VerifyToken(ctx, nil, "anything"), ErrCSRFTokenMissing)
	assert.ErrorIs(t, manager.VerifyToken(ctx, &Session{ID: "s"}, "anything"), ErrCSRFTokenMissing)
}
