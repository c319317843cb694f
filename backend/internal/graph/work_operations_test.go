package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "artlink/backend/pkg/errors"
)

func TestCreateWork(t *testing.T) {
	ctx, repo := newTestRepo(t)

	work, err := repo.CreateWork(ctx, WorkInput{
		URI:    "http://example.org/work/1",
		Title:  "Madonna",
		Author: "Anonymous",
		Date:   1510,
		Images: []ImageInput{
			{IIIFURL: "https://iiif.example.org/1/a", Width: 1200, Height: 900},
			{IIIFURL: "https://iiif.example.org/1/b", Width: 640, Height: 480},
		},
	}, nil)
	require.NoError(t, err)
	require.Len(t, work.Images, 2)
	assert.Equal(t, 1510, work.Date)

	stored, err := repo.WorkByUID(ctx, work.UID)
	require.NoError(t, err)
	assert.Len(t, stored.Images, 2)

	for _, img := range work.Images {
		owner, err := repo.WorkForImage(ctx, img.UID)
		require.NoError(t, err)
		assert.Equal(t, work.UID, owner.UID)
	}
}

func TestCreateWorkValidation(t *testing.T) {
	ctx, repo := newTestRepo(t)

	_, err := repo.CreateWork(ctx, WorkInput{URI: "u"}, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = repo.CreateWork(ctx, WorkInput{
		URI:    "u",
		Images: []ImageInput{{IIIFURL: ""}},
	}, nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateWorkDuplicateIIIFURL(t *testing.T) {
	ctx, repo := newTestRepo(t)

	input := WorkInput{
		URI:    "u1",
		Images: []ImageInput{{IIIFURL: "https://iiif.example.org/same"}},
	}
	_, err := repo.CreateWork(ctx, input, nil)
	require.NoError(t, err)

	input.URI = "u2"
	_, err = repo.CreateWork(ctx, input, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// The rolled back second work must not exist.
	works, err := repo.RandomWorks(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, works, 1)
}

func TestRandomWorks(t *testing.T) {
	ctx, repo := newTestRepo(t)
	for i := 0; i < 5; i++ {
		seedWork(t, ctx, repo, string(rune('a'+i)), 1)
	}

	works, err := repo.RandomWorks(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, works, 3)
	for _, work := range works {
		assert.Len(t, work.Images, 1)
	}
}

func TestImagesByUID(t *testing.T) {
	ctx, repo := newTestRepo(t)
	images := seedImages(t, ctx, repo, 3)

	// The batch keeps the requested order.
	fetched, err := repo.ImagesByUID(ctx, []string{images[2].UID, images[0].UID})
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, images[2].UID, fetched[0].UID)
	assert.Equal(t, images[0].UID, fetched[1].UID)

	_, err = repo.ImagesByUID(ctx, []string{images[0].UID, "ghost"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCollections(t *testing.T) {
	ctx, repo := newTestRepo(t)

	top, err := repo.CreateCollection(ctx, "http://example.org/coll/top", "Museum", "", nil)
	require.NoError(t, err)
	child, err := repo.CreateCollection(ctx, "http://example.org/coll/child", "Wing", "", top)
	require.NoError(t, err)

	all, err := repo.Collections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	roots, err := repo.TopCollections(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, top.UID, roots[0].UID)

	work, err := repo.CreateWork(ctx, WorkInput{
		URI:    "w-in-coll",
		Images: []ImageInput{{IIIFURL: "https://iiif.example.org/coll/0"}},
	}, child)
	require.NoError(t, err)

	works, err := repo.CollectionWorks(ctx, child)
	require.NoError(t, err)
	require.Len(t, works, 1)
	assert.Equal(t, work.UID, works[0].UID)
}

func TestStats(t *testing.T) {
	ctx, repo := newTestRepo(t)
	user := seedUser(t, ctx, repo, "alice", 2)
	images := seedImages(t, ctx, repo, 4)
	seedAnnotatedLink(t, ctx, repo, images[0], images[1], user, LinkDuplicate)
	_, _, err := repo.CreateProposal(ctx, images[2], images[3], user, false)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)

	byKey := make(map[string]int64, len(stats))
	for _, stat := range stats {
		byKey[stat.Key] = stat.Value
	}
	assert.Equal(t, int64(4), byKey["works"])
	assert.Equal(t, int64(4), byKey["images"])
	assert.Equal(t, int64(1), byKey["users"])
	assert.Equal(t, int64(2), byKey["links"])
	assert.Equal(t, int64(1), byKey["links_DUPLICATE"])
	assert.Equal(t, int64(1), byKey["links_PROPOSAL"])
	assert.Equal(t, int64(0), byKey["triplets_open"])
}
