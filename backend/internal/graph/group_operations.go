package graph

import (
	"context"
	"sort"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
)

// ============================================================================
// Group Operations
// ============================================================================

// CreateGroup registers an image group owned by user.
func (r *Repository) CreateGroup(ctx context.Context, label, notes string, user *User) (*Group, error) {
	if label == "" {
		return nil, apperrors.NewValidation("a group label is required")
	}
	if user == nil {
		return nil, apperrors.NewValidation("an owning user is required")
	}

	var group *Group
	err := r.store.InTx(ctx, func(tx store.Store) error {
		props := newEntityProps()
		props["label"] = label
		props["notes"] = notes
		node, err := tx.CreateNode(ctx, labelGroup, props)
		if err != nil {
			return err
		}
		group = groupFromNode(node)
		return tx.Connect(ctx, user.UID, relOwns, group.UID, nil)
	})
	if err != nil {
		return nil, storeErr("failed to create group", err)
	}
	return group, nil
}

// GroupByUID fetches a group by identifier.
func (r *Repository) GroupByUID(ctx context.Context, uid string) (*Group, error) {
	node, err := r.nodeByUIDOrNotFound(ctx, r.store, labelGroup, "group", uid)
	if err != nil {
		return nil, err
	}
	return groupFromNode(node), nil
}

// SetGroupImages replaces the group's membership with exactly the given
// images. The old and new membership never coexist outside the
// transaction.
func (r *Repository) SetGroupImages(ctx context.Context, group *Group, images []*Image) error {
	if group == nil {
		return apperrors.NewValidation("a group is required")
	}

	err := r.store.InTx(ctx, func(tx store.Store) error {
		current, err := tx.Neighbors(ctx, []string{group.UID}, relGroupContains, store.Out, labelImage)
		if err != nil {
			return err
		}
		for _, member := range current[group.UID] {
			if err := tx.Disconnect(ctx, group.UID, relGroupContains, member.UID); err != nil {
				return err
			}
		}
		for _, img := range images {
			if err := tx.Connect(ctx, group.UID, relGroupContains, img.UID, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("failed to set group images", err)
	}
	return nil
}

// GroupImages lists a group's member images.
func (r *Repository) GroupImages(ctx context.Context, group *Group) ([]*Image, error) {
	members, err := r.store.Neighbors(ctx, []string{group.UID}, relGroupContains, store.Out, labelImage)
	if err != nil {
		return nil, storeErr("failed to fetch group images", err)
	}
	images := make([]*Image, 0, len(members[group.UID]))
	for _, node := range members[group.UID] {
		images = append(images, imageFromNode(node))
	}
	return images, nil
}

// GroupsOwnedBy lists the groups a user owns, sorted by label.
func (r *Repository) GroupsOwnedBy(ctx context.Context, user *User) ([]*Group, error) {
	owned, err := r.store.Neighbors(ctx, []string{user.UID}, relOwns, store.Out, labelGroup)
	if err != nil {
		return nil, storeErr("failed to fetch owned groups", err)
	}
	groups := make([]*Group, 0, len(owned[user.UID]))
	for _, node := range owned[user.UID] {
		groups = append(groups, groupFromNode(node))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Label < groups[j].Label })
	return groups, nil
}
