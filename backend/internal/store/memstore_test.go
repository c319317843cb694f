package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNode(t *testing.T, m *MemStore, label string, props Props) *Node {
	t.Helper()
	if props == nil {
		props = Props{}
	}
	if _, ok := props["uid"]; !ok {
		props["uid"] = uuid.New().String()
	}
	node, err := m.CreateNode(context.Background(), label, props)
	require.NoError(t, err)
	return node
}

func TestMemStoreCreateAndFetch(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	created := newNode(t, m, "Image", Props{"iiif_url": "u1", "width": 800})

	fetched, err := m.NodeByUID(ctx, "Image", created.UID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, created.ID, fetched.ID)
	// Integer props normalize to int64 on the way in.
	assert.Equal(t, int64(800), fetched.Props["width"])

	// Label mismatch behaves like absence.
	wrong, err := m.NodeByUID(ctx, "Work", created.UID)
	require.NoError(t, err)
	assert.Nil(t, wrong)
}

func TestMemStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	newNode(t, m, "Image", Props{"iiif_url": "same"})
	_, err := m.CreateNode(ctx, "Image", Props{"uid": uuid.New().String(), "iiif_url": "same"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstraint))

	newNode(t, m, "VisualLink", Props{"pair_key": "a|b"})
	_, err = m.CreateNode(ctx, "VisualLink", Props{"uid": uuid.New().String(), "pair_key": "a|b"})
	assert.True(t, errors.Is(err, ErrConstraint))
}

func TestMemStoreSetProps(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	node := newNode(t, m, "VisualLink", Props{"type": "PROPOSAL"})

	require.NoError(t, m.SetProps(ctx, node.UID, Props{"type": "DUPLICATE", "annotated": "now"}))
	fetched, err := m.NodeByUID(ctx, "VisualLink", node.UID)
	require.NoError(t, err)
	assert.Equal(t, "DUPLICATE", fetched.Props["type"])
	assert.Equal(t, "now", fetched.Props["annotated"])

	// nil removes the property.
	require.NoError(t, m.SetProps(ctx, node.UID, Props{"annotated": nil}))
	fetched, err = m.NodeByUID(ctx, "VisualLink", node.UID)
	require.NoError(t, err)
	_, present := fetched.Props["annotated"]
	assert.False(t, present)

	// A vanished node is an error, not a silent no-op.
	assert.Error(t, m.SetProps(ctx, "ghost", Props{"type": "DUPLICATE"}))
}

func TestMemStoreConnectAndNeighbors(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	link := newNode(t, m, "VisualLink", nil)
	imgA := newNode(t, m, "Image", Props{"iiif_url": "a"})
	imgB := newNode(t, m, "Image", Props{"iiif_url": "b"})
	user := newNode(t, m, "User", Props{"username": "alice"})

	require.NoError(t, m.Connect(ctx, link.UID, "LINKS", imgA.UID, nil))
	require.NoError(t, m.Connect(ctx, link.UID, "LINKS", imgB.UID, nil))
	require.NoError(t, m.Connect(ctx, link.UID, "CREATED_BY", user.UID, nil))
	// Connect merges; repeating does not duplicate the edge.
	require.NoError(t, m.Connect(ctx, link.UID, "LINKS", imgA.UID, nil))

	out, err := m.Neighbors(ctx, []string{link.UID}, "LINKS", Out, "Image")
	require.NoError(t, err)
	assert.Len(t, out[link.UID], 2)

	in, err := m.Neighbors(ctx, []string{imgA.UID, imgB.UID}, "LINKS", In, "VisualLink")
	require.NoError(t, err)
	assert.Len(t, in[imgA.UID], 1)
	assert.Len(t, in[imgB.UID], 1)

	// Peer label filters the expansion.
	none, err := m.Neighbors(ctx, []string{link.UID}, "LINKS", Out, "User")
	require.NoError(t, err)
	assert.Empty(t, none[link.UID])

	require.NoError(t, m.Disconnect(ctx, link.UID, "LINKS", imgA.UID))
	out, err = m.Neighbors(ctx, []string{link.UID}, "LINKS", Out, "Image")
	require.NoError(t, err)
	assert.Len(t, out[link.UID], 1)
	// Disconnecting a missing edge is fine.
	require.NoError(t, m.Disconnect(ctx, link.UID, "LINKS", imgA.UID))
}

func TestMemStoreFindNodes(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	imgA := newNode(t, m, "Image", Props{"iiif_url": "a"})
	imgB := newNode(t, m, "Image", Props{"iiif_url": "b"})
	open := newNode(t, m, "VisualLink", Props{"type": "PROPOSAL"})
	closed := newNode(t, m, "VisualLink", Props{"type": "DUPLICATE", "annotated": "t"})
	for _, link := range []*Node{open, closed} {
		require.NoError(t, m.Connect(ctx, link.UID, "LINKS", imgA.UID, nil))
		require.NoError(t, m.Connect(ctx, link.UID, "LINKS", imgB.UID, nil))
	}

	byProp, err := m.FindNodes(ctx, NodeQuery{Label: "VisualLink", Props: Props{"type": "PROPOSAL"}})
	require.NoError(t, err)
	require.Len(t, byProp, 1)
	assert.Equal(t, open.UID, byProp[0].UID)

	byAbsent, err := m.FindNodes(ctx, NodeQuery{Label: "VisualLink", Absent: []string{"annotated"}})
	require.NoError(t, err)
	require.Len(t, byAbsent, 1)
	assert.Equal(t, open.UID, byAbsent[0].UID)

	byRel, err := m.FindNodes(ctx, NodeQuery{
		Label: "VisualLink",
		Connected: []RelCond{
			{Rel: "LINKS", Dir: Out, Peer: imgA.UID},
			{Rel: "LINKS", Dir: Out, Peer: imgB.UID},
		},
	})
	require.NoError(t, err)
	assert.Len(t, byRel, 2)

	count, err := m.CountNodes(ctx, NodeQuery{Label: "VisualLink"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	byUIDs, err := m.FindNodes(ctx, NodeQuery{Label: "VisualLink", UIDs: []string{open.UID, "ghost"}})
	require.NoError(t, err)
	assert.Len(t, byUIDs, 1)
}

func TestMemStoreSample(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	for i := 0; i < 10; i++ {
		newNode(t, m, "Work", Props{"uri": fmt.Sprintf("u%d", i)})
	}

	sampled, err := m.Sample(ctx, NodeQuery{Label: "Work"}, 4)
	require.NoError(t, err)
	assert.Len(t, sampled, 4)

	all, err := m.Sample(ctx, NodeQuery{Label: "Work"}, 100)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestMemStoreDeleteNode(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	link := newNode(t, m, "VisualLink", nil)
	img := newNode(t, m, "Image", Props{"iiif_url": "a"})
	require.NoError(t, m.Connect(ctx, link.UID, "LINKS", img.UID, nil))

	require.NoError(t, m.DeleteNode(ctx, link.UID))

	gone, err := m.NodeByUID(ctx, "VisualLink", link.UID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// The dangling edge went with the node.
	in, err := m.Neighbors(ctx, []string{img.UID}, "LINKS", In, "VisualLink")
	require.NoError(t, err)
	assert.Empty(t, in[img.UID])
}

func TestMemStoreInTxRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	img := newNode(t, m, "Image", Props{"iiif_url": "kept"})

	boom := errors.New("boom")
	err := m.InTx(ctx, func(tx Store) error {
		if _, err := tx.CreateNode(ctx, "Image", Props{"uid": uuid.New().String(), "iiif_url": "doomed"}); err != nil {
			return err
		}
		if err := tx.SetProps(ctx, img.UID, Props{"width": 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := m.CountNodes(ctx, NodeQuery{Label: "Image"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	fetched, err := m.NodeByUID(ctx, "Image", img.UID)
	require.NoError(t, err)
	_, present := fetched.Props["width"]
	assert.False(t, present)
}

func TestMemStoreInTxCommit(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	var uid string
	err := m.InTx(ctx, func(tx Store) error {
		node, err := tx.CreateNode(ctx, "Work", Props{"uid": uuid.New().String(), "uri": "u"})
		if err != nil {
			return err
		}
		uid = node.UID
		return nil
	})
	require.NoError(t, err)

	fetched, err := m.NodeByUID(ctx, "Work", uid)
	require.NoError(t, err)
	require.NotNil(t, fetched)
}
