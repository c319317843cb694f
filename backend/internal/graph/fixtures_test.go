package graph

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"artlink/backend/internal/store"
)

func newTestRepo(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	return context.Background(), NewRepository(store.NewMemStore())
}

func seedUser(t *testing.T, ctx context.Context, repo *Repository, username string, level int) *User {
	t.Helper()
	user, err := repo.CreateUser(ctx, username, "secret", level)
	require.NoError(t, err)
	return user
}

// seedWork creates a work with nbImages images. The iiif urls embed the
// work uri to stay globally unique across a test.
func seedWork(t *testing.T, ctx context.Context, repo *Repository, uri string, nbImages int) *Work {
	t.Helper()
	input := WorkInput{URI: uri, Title: "work " + uri}
	for i := 0; i < nbImages; i++ {
		input.Images = append(input.Images, ImageInput{
			IIIFURL: fmt.Sprintf("https://iiif.example.org/%s/%d", uri, i),
			Width:   800,
			Height:  600,
		})
	}
	work, err := repo.CreateWork(ctx, input, nil)
	require.NoError(t, err)
	return work
}

// seedImageSeq keeps work uris from seedImages unique across repeated
// calls within one test.
var seedImageSeq atomic.Int64

// seedImages creates nb single-image works and returns one image per work,
// which is the common shape for linking tests.
func seedImages(t *testing.T, ctx context.Context, repo *Repository, nb int) []*Image {
	t.Helper()
	images := make([]*Image, 0, nb)
	for i := 0; i < nb; i++ {
		work := seedWork(t, ctx, repo, fmt.Sprintf("seed-w%d", seedImageSeq.Add(1)), 1)
		images = append(images, work.Images[0])
	}
	return images
}

// seedAnnotatedLink links two images and finalizes the link as linkType.
func seedAnnotatedLink(t *testing.T, ctx context.Context, repo *Repository, imgA, imgB *Image, user *User, linkType LinkType) *VisualLink {
	t.Helper()
	link, _, err := repo.CreateProposal(ctx, imgA, imgB, user, true)
	require.NoError(t, err)
	require.NoError(t, repo.Annotate(ctx, link, user, linkType))
	return link
}
