package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "artlink/backend/pkg/errors"
)

func TestCreatePersonalLinkIdempotent(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 1)
	images := seedImages(t, ctx, repo, 2)

	first, outcome, err := repo.CreatePersonalLink(ctx, images[0], images[1], user)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	second, outcome, err := repo.CreatePersonalLink(ctx, images[1], images[0], user)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, outcome)
	assert.Equal(t, first.UID, second.UID)
}

func TestCreatePersonalLinkRejectsSameWork(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 1)
	work := seedWork(t, ctx, repo, "uri-1", 2)

	link, _, err := repo.CreatePersonalLink(ctx, work.Images[0], work.Images[1], user)
	assert.Nil(t, link)
	assert.True(t, apperrors.IsValidation(err))
}

func TestPersonalLinksArePerUser(t *testing.T) {
	ctx, repo := newTestRepo(t)
	alice := seedUser(t, ctx, repo, "alice", 1)
	bob := seedUser(t, ctx, repo, "bob", 1)
	images := seedImages(t, ctx, repo, 2)

	aliceLink, _, err := repo.CreatePersonalLink(ctx, images[0], images[1], alice)
	require.NoError(t, err)

	bobLink, outcome, err := repo.CreatePersonalLink(ctx, images[0], images[1], bob)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.NotEqual(t, aliceLink.UID, bobLink.UID)
}

func TestDeletePersonalLink(t *testing.T) {
	ctx, repo := newTestRepo(t)
	alice := seedUser(t, ctx, repo, "alice", 1)
	bob := seedUser(t, ctx, repo, "bob", 1)
	images := seedImages(t, ctx, repo, 2)

	link, _, err := repo.CreatePersonalLink(ctx, images[0], images[1], alice)
	require.NoError(t, err)

	err = repo.DeletePersonalLink(ctx, link, bob)
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, repo.DeletePersonalLink(ctx, link, alice))
	_, err = repo.PersonalLinkByUID(ctx, link.UID)
	assert.True(t, apperrors.IsNotFound(err))
}
