package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "artlink/backend/pkg/errors"
)

func TestCreateProposal(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 2)

	link, outcome, err := repo.CreateProposal(ctx, images[0], images[1], user, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, LinkProposal, link.Type)
	assert.Nil(t, link.Annotated)

	endpoints, err := repo.LinkImages(ctx, link)
	require.NoError(t, err)
	assert.Len(t, endpoints, 2)

	creator, err := repo.LinkCreator(ctx, link)
	require.NoError(t, err)
	require.NotNil(t, creator)
	assert.Equal(t, user.UID, creator.UID)
}

func TestCreateProposalExistOK(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 2)

	first, outcome, err := repo.CreateProposal(ctx, images[0], images[1], user, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	// Repeating in either argument order finds the same link.
	second, outcome, err := repo.CreateProposal(ctx, images[1], images[0], user, true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, outcome)
	assert.Equal(t, first.UID, second.UID)

	proposals, err := repo.RandomLinkProposals(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, proposals, 1)
}

func TestCreateProposalConflict(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 2)

	_, _, err := repo.CreateProposal(ctx, images[0], images[1], user, false)
	require.NoError(t, err)

	_, _, err = repo.CreateProposal(ctx, images[0], images[1], user, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateProposalValidation(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)

	_, _, err := repo.CreateProposal(ctx, nil, nil, user, false)
	assert.True(t, apperrors.IsValidation(err))

	images := seedImages(t, ctx, repo, 1)
	_, _, err = repo.CreateProposal(ctx, images[0], images[0], user, false)
	assert.True(t, apperrors.IsValidation(err))

	// Two images of the same work cannot be linked.
	work := seedWork(t, ctx, repo, "two-sided", 2)
	_, _, err = repo.CreateProposal(ctx, work.Images[0], work.Images[1], user, false)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAnnotateAndRemove(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 2)

	link, _, err := repo.CreateProposal(ctx, images[0], images[1], user, false)
	require.NoError(t, err)

	require.NoError(t, repo.Annotate(ctx, link, user, LinkDuplicate))
	assert.Equal(t, LinkDuplicate, link.Type)
	require.NotNil(t, link.Annotated)

	stored, err := repo.LinkByUID(ctx, link.UID)
	require.NoError(t, err)
	assert.Equal(t, LinkDuplicate, stored.Type)
	require.NotNil(t, stored.Annotated)

	annotator, err := repo.LinkAnnotator(ctx, link)
	require.NoError(t, err)
	require.NotNil(t, annotator)
	assert.Equal(t, user.UID, annotator.UID)

	require.NoError(t, repo.RemoveAnnotation(ctx, link, user))
	assert.Equal(t, LinkProposal, link.Type)
	assert.Nil(t, link.Annotated)

	annotator, err = repo.LinkAnnotator(ctx, link)
	require.NoError(t, err)
	assert.Nil(t, annotator)
}

func TestAnnotateRejectsProposalType(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 2)

	link, _, err := repo.CreateProposal(ctx, images[0], images[1], user, false)
	require.NoError(t, err)

	err = repo.Annotate(ctx, link, user, LinkProposal)
	assert.True(t, apperrors.IsValidation(err))
	err = repo.Annotate(ctx, link, user, LinkType("BOGUS"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestReannotationReplacesAnnotator(t *testing.T) {
	ctx, repo := newTestRepo(t)
	alice := seedUser(t, ctx, repo, "alice", 2)
	bob := seedUser(t, ctx, repo, "bob", 2)
	images := seedImages(t, ctx, repo, 2)

	link, _, err := repo.CreateProposal(ctx, images[0], images[1], alice, false)
	require.NoError(t, err)

	require.NoError(t, repo.Annotate(ctx, link, alice, LinkDuplicate))
	require.NoError(t, repo.Annotate(ctx, link, bob, LinkNonDuplicate))

	assert.Equal(t, LinkNonDuplicate, link.Type)
	annotator, err := repo.LinkAnnotator(ctx, link)
	require.NoError(t, err)
	require.NotNil(t, annotator)
	assert.Equal(t, bob.UID, annotator.UID)
}

func TestRemoveAnnotationWithoutAnnotator(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 2)

	link, _, err := repo.CreateProposal(ctx, images[0], images[1], user, false)
	require.NoError(t, err)

	require.NoError(t, repo.RemoveAnnotation(ctx, link, user))
	assert.Equal(t, LinkProposal, link.Type)
	assert.Nil(t, link.Annotated)
}

func TestLinkBetween(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 3)

	link, _, err := repo.CreateProposal(ctx, images[0], images[1], user, false)
	require.NoError(t, err)

	found, err := repo.LinkBetween(ctx, images[1].UID, images[0].UID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, link.UID, found.UID)

	none, err := repo.LinkBetween(ctx, images[0].UID, images[2].UID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRandomLinkProposalsExcludesAnnotated(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 4)

	open, _, err := repo.CreateProposal(ctx, images[0], images[1], user, false)
	require.NoError(t, err)
	seedAnnotatedLink(t, ctx, repo, images[2], images[3], user, LinkDuplicate)

	proposals, err := repo.RandomLinkProposals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, open.UID, proposals[0].UID)

	// A limit above the population is not an error.
	proposals, err = repo.RandomLinkProposals(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, proposals, 1)
}
