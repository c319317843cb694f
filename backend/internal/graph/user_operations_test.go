package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "artlink/backend/pkg/errors"
)

func TestCreateUser(t *testing.T) {
	ctx, repo := newTestRepo(t)

	user, err := repo.CreateUser(ctx, "alice", "secret", 2)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.CanAnnotateLinks())
	assert.NotEqual(t, "secret", user.PasswordSHA256)

	_, err = repo.CreateUser(ctx, "alice", "other", 1)
	assert.True(t, apperrors.IsConflict(err))

	viewer, err := repo.CreateUser(ctx, "bob", "secret", 1)
	require.NoError(t, err)
	assert.False(t, viewer.CanAnnotateLinks())
}

func TestUserLookup(t *testing.T) {
	ctx, repo := newTestRepo(t)
	created := seedUser(t, ctx, repo, "alice", 2)

	byName, err := repo.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.UID, byName.UID)

	byUID, err := repo.UserByUID(ctx, created.UID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byUID.Username)

	_, err = repo.UserByUsername(ctx, "nobody")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuthenticate(t *testing.T) {
	ctx, repo := newTestRepo(t)
	seedUser(t, ctx, repo, "alice", 2)

	user, err := repo.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = repo.Authenticate(ctx, "alice", "wrong")
	assert.True(t, apperrors.IsUnauthorized(err))

	// Unknown usernames fail the same way as wrong passwords.
	_, err = repo.Authenticate(ctx, "nobody", "secret")
	assert.True(t, apperrors.IsUnauthorized(err))
}
