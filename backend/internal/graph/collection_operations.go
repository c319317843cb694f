package graph

import (
	"context"
	"sort"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
)

// ============================================================================
// Collection Operations
// ============================================================================

// CreateCollection registers a collection, optionally nested under a
// parent.
func (r *Repository) CreateCollection(ctx context.Context, uri, label, description string, parent *Collection) (*Collection, error) {
	if uri == "" {
		return nil, apperrors.NewValidation("a collection uri is required")
	}

	var coll *Collection
	err := r.store.InTx(ctx, func(tx store.Store) error {
		props := newEntityProps()
		props["uri"] = uri
		props["label"] = label
		props["description"] = description
		node, err := tx.CreateNode(ctx, labelCollection, props)
		if err != nil {
			return err
		}
		coll = collectionFromNode(node)
		if parent != nil {
			return tx.Connect(ctx, parent.UID, relCollContains, coll.UID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("failed to create collection", err)
	}
	return coll, nil
}

// CollectionByUID fetches a collection by identifier.
func (r *Repository) CollectionByUID(ctx context.Context, uid string) (*Collection, error) {
	node, err := r.nodeByUIDOrNotFound(ctx, r.store, labelCollection, "collection", uid)
	if err != nil {
		return nil, err
	}
	return collectionFromNode(node), nil
}

// Collections lists every collection, sorted by label.
func (r *Repository) Collections(ctx context.Context) ([]*Collection, error) {
	nodes, err := r.store.FindNodes(ctx, store.NodeQuery{Label: labelCollection})
	if err != nil {
		return nil, storeErr("failed to list collections", err)
	}
	colls := make([]*Collection, 0, len(nodes))
	for _, node := range nodes {
		colls = append(colls, collectionFromNode(node))
	}
	sort.Slice(colls, func(i, j int) bool { return colls[i].Label < colls[j].Label })
	return colls, nil
}

// TopCollections lists the collections that are not contained in any other
// collection.
func (r *Repository) TopCollections(ctx context.Context) ([]*Collection, error) {
	colls, err := r.Collections(ctx)
	if err != nil {
		return nil, err
	}
	if len(colls) == 0 {
		return colls, nil
	}
	uids := make([]string, 0, len(colls))
	for _, coll := range colls {
		uids = append(uids, coll.UID)
	}
	parents, err := r.store.Neighbors(ctx, uids, relCollContains, store.In, labelCollection)
	if err != nil {
		return nil, storeErr("failed to resolve collection parents", err)
	}
	top := colls[:0]
	for _, coll := range colls {
		if len(parents[coll.UID]) == 0 {
			top = append(top, coll)
		}
	}
	return top, nil
}

// CollectionWorks lists the works directly contained in a collection.
func (r *Repository) CollectionWorks(ctx context.Context, coll *Collection) ([]*Work, error) {
	contained, err := r.store.Neighbors(ctx, []string{coll.UID}, relCollContains, store.Out, labelWork)
	if err != nil {
		return nil, storeErr("failed to fetch collection works", err)
	}
	works := make([]*Work, 0, len(contained[coll.UID]))
	for _, node := range contained[coll.UID] {
		works = append(works, workFromNode(node))
	}
	if err := r.attachImages(ctx, works); err != nil {
		return nil, err
	}
	return works, nil
}

// ============================================================================
// Statistics
// ============================================================================

// Stats counts the stored entities per label and the links per annotation
// type, plus the resolved and open triplet comparisons.
func (r *Repository) Stats(ctx context.Context) ([]Stat, error) {
	stats := make([]Stat, 0, 16)
	for _, entry := range []struct {
		key, label, nodeLabel string
	}{
		{"collections", "Collections", labelCollection},
		{"works", "Works", labelWork},
		{"images", "Images", labelImage},
		{"users", "Users", labelUser},
		{"links", "Visual links", labelVisualLink},
		{"personal_links", "Personal links", labelPersonalLink},
		{"triplets", "Triplet comparisons", labelTriplet},
	} {
		count, err := r.store.CountNodes(ctx, store.NodeQuery{Label: entry.nodeLabel})
		if err != nil {
			return nil, storeErr("failed to count "+entry.key, err)
		}
		stats = append(stats, Stat{Key: entry.key, Label: entry.label, Value: count})
	}

	for _, lt := range AllLinkTypes {
		count, err := r.store.CountNodes(ctx, store.NodeQuery{
			Label: labelVisualLink,
			Props: store.Props{"type": string(lt)},
		})
		if err != nil {
			return nil, storeErr("failed to count links by type", err)
		}
		stats = append(stats, Stat{
			Key:   "links_" + string(lt),
			Label: "Links " + string(lt),
			Value: count,
		})
	}

	total, err := r.store.CountNodes(ctx, store.NodeQuery{Label: labelTriplet})
	if err != nil {
		return nil, storeErr("failed to count triplets", err)
	}
	open, err := r.store.CountNodes(ctx, store.NodeQuery{
		Label:  labelTriplet,
		Absent: []string{"annotated"},
	})
	if err != nil {
		return nil, storeErr("failed to count open triplets", err)
	}
	stats = append(stats,
		Stat{Key: "triplets_resolved", Label: "Triplets resolved", Value: total - open},
		Stat{Key: "triplets_open", Label: "Triplets open", Value: open},
	)
	return stats, nil
}
