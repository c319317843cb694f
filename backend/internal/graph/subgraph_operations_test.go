package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "artlink/backend/pkg/errors"
)

func linkedChain(t *testing.T, ctx context.Context, repo *Repository, user *User, nb int) []*Image {
	t.Helper()
	images := seedImages(t, ctx, repo, nb)
	for i := 0; i+1 < nb; i++ {
		seedAnnotatedLink(t, ctx, repo, images[i], images[i+1], user, LinkDuplicate)
	}
	return images
}

func TestSubgraphEmptySeeds(t *testing.T) {
	ctx, repo := newTestRepo(t)

	nodes, edges, err := repo.Subgraph(ctx, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
}

func TestSubgraphUnknownSeed(t *testing.T) {
	ctx, repo := newTestRepo(t)

	_, _, err := repo.Subgraph(ctx, []string{"missing"}, 1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSubgraphDepthZero(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := linkedChain(t, ctx, repo, user, 3)

	// Depth 0 keeps the seeds alone, with the edges among them.
	nodes, edges, err := repo.Subgraph(ctx, []string{images[0].UID, images[1].UID}, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Len(t, edges, 1)
	assert.ElementsMatch(t,
		[]string{images[0].UID, images[1].UID},
		[]string{edges[0].SourceUID, edges[0].TargetUID})
}

func TestSubgraphDepthExpansion(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := linkedChain(t, ctx, repo, user, 4)

	nodes, edges, err := repo.Subgraph(ctx, []string{images[0].UID}, 1)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	assert.Len(t, edges, 1)

	nodes, edges, err = repo.Subgraph(ctx, []string{images[0].UID}, 2)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
	assert.Len(t, edges, 2)

	// Deeper than the graph just saturates.
	nodes, edges, err = repo.Subgraph(ctx, []string{images[0].UID}, 10)
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
	assert.Len(t, edges, 3)
}

func TestSubgraphIsolatedSeedSurvives(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	chain := linkedChain(t, ctx, repo, user, 2)
	isolated := seedImages(t, ctx, repo, 1)[0]

	nodes, edges, err := repo.Subgraph(ctx, []string{chain[0].UID, isolated.UID}, 2)
	require.NoError(t, err)

	uids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		uids = append(uids, n.UID)
	}
	assert.Contains(t, uids, isolated.UID)
	assert.Contains(t, uids, chain[0].UID)
	assert.Contains(t, uids, chain[1].UID)
	assert.Len(t, edges, 1)
}

func TestSubgraphEdgeOrientationIsStable(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := linkedChain(t, ctx, repo, user, 2)

	first, _, err := repo.Subgraph(ctx, []string{images[0].UID, images[1].UID}, 0)
	require.NoError(t, err)
	second, edges2, err := repo.Subgraph(ctx, []string{images[1].UID, images[0].UID}, 0)
	require.NoError(t, err)
	_, edges1, err := repo.Subgraph(ctx, []string{images[0].UID, images[1].UID}, 0)
	require.NoError(t, err)

	require.Len(t, edges1, 1)
	require.Len(t, edges2, 1)
	assert.Equal(t, edges1[0].SourceUID, edges2[0].SourceUID)
	assert.Equal(t, edges1[0].TargetUID, edges2[0].TargetUID)
	assert.Equal(t, len(first), len(second))
}

func TestSubgraphPersonalVisibility(t *testing.T) {
	ctx, repo := newTestRepo(t)
	alice := seedUser(t, ctx, repo, "alice", 1)
	bob := seedUser(t, ctx, repo, "bob", 1)
	images := seedImages(t, ctx, repo, 3)

	_, _, err := repo.CreatePersonalLink(ctx, images[0], images[1], alice)
	require.NoError(t, err)
	_, _, err = repo.CreatePersonalLink(ctx, images[1], images[2], bob)
	require.NoError(t, err)

	nodes, edges, err := repo.SubgraphPersonal(ctx, []string{images[0].UID}, 2, alice)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	require.Len(t, edges, 1)

	// Bob's walk from the same seed sees nothing of alice's link.
	nodes, edges, err = repo.SubgraphPersonal(ctx, []string{images[0].UID}, 2, bob)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Empty(t, edges)
}

func TestSubgraphNegativeDepth(t *testing.T) {
	ctx, repo := newTestRepo(t)

	_, _, err := repo.Subgraph(ctx, nil, -1)
	assert.True(t, apperrors.IsValidation(err))
}
