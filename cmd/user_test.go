package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/auth"
)

func resetUserFlags(t *testing.T) {
	t.Helper()
	reset := func() { userPassword, userRole, dryRun = "", "user", false }
	reset()
	t.Cleanup(reset)
}

func TestUserAddAndList(t *testing.T) {
	testEnv(t)
	resetUserFlags(t)

	userPassword = "s3cret!"
	require.NoError(t, userAddRun(context.Background(), "alice"))
	assert.NotContains(t, stdout(), "password:")

	_, err := app.users.Authenticate(context.Background(), "alice", "s3cret!")
	require.NoError(t, err)

	require.NoError(t, userListRun(context.Background()))
	assert.Contains(t, stdout(), "alice")
	assert.Contains(t, stdout(), "admin")
}

func TestUserAdd_GeneratesPassword(t *testing.T) {
	testEnv(t)
	resetUserFlags(t)

	require.NoError(t, userAddRun(context.Background(), "bob"))
	assert.Contains(t, stdout(), "password:")
}

func TestUserAdd_Errors(t *testing.T) {
	testEnv(t)
	resetUserFlags(t)

	userRole = "root"
	assert.ErrorContains(t, userAddRun(context.Background(), "carol"), "unknown role")

	userRole = "user"
	userPassword = "x"
	assert.ErrorIs(t, userAddRun(context.Background(), "admin"), auth.ErrUserExists)
}

func TestUserPasswd(t *testing.T) {
	testEnv(t)
	resetUserFlags(t)

	userPassword = "changed-pass"
	require.NoError(t, userPasswdRun(context.Background(), "admin"))

	_, err := app.users.Authenticate(context.Background(), "admin", "changed-pass")
	require.NoError(t, err)
	_, err = app.users.Authenticate(context.Background(), "admin", "tracker02")
	assert.ErrorIs(t, err, auth.ErrAuthenticationFailed)

	assert.ErrorIs(t, userPasswdRun(context.Background(), "nobody"), auth.ErrUserNotFound)
}
