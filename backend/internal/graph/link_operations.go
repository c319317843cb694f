package graph

import (
	"context"
	"time"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
)

// ============================================================================
// VisualLink Operations
// ============================================================================

// CreateProposal looks up the VisualLink over the unordered image pair and
// creates it in the PROPOSAL state when absent. The look-then-create runs
// inside one store transaction, and the store additionally enforces a
// uniqueness constraint on the pair key, so two concurrent callers cannot
// both create a link for the same pair.
//
// When a link already exists, existOK selects between returning it
// (OutcomeFound) and failing with a conflict.
func (r *Repository) CreateProposal(ctx context.Context, imgA, imgB *Image, user *User, existOK bool) (*VisualLink, Outcome, error) {
	if imgA == nil || imgB == nil {
		return nil, OutcomeFound, apperrors.NewValidation("both images are required")
	}
	if user == nil {
		return nil, OutcomeFound, apperrors.NewValidation("a creating user is required")
	}
	if imgA.UID == imgB.UID {
		return nil, OutcomeFound, apperrors.NewValidation("the two images are the same")
	}

	workA, err := r.WorkForImage(ctx, imgA.UID)
	if err != nil {
		return nil, OutcomeFound, err
	}
	workB, err := r.WorkForImage(ctx, imgB.UID)
	if err != nil {
		return nil, OutcomeFound, err
	}
	if workA.UID == workB.UID {
		return nil, OutcomeFound, apperrors.NewValidation("cannot link two images of the same work")
	}

	var link *VisualLink
	outcome := OutcomeFound
	err = r.store.InTx(ctx, func(tx store.Store) error {
		existing, err := findLinkBetween(ctx, tx, imgA.UID, imgB.UID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existOK {
				return apperrors.NewConflict("images are already linked: %s", existing.UID)
			}
			link = existing
			return nil
		}

		props := newEntityProps()
		props["type"] = string(LinkProposal)
		props["pair_key"] = pairKey(imgA.UID, imgB.UID)
		node, err := tx.CreateNode(ctx, labelVisualLink, props)
		if err != nil {
			return err
		}
		if err := tx.Connect(ctx, node.UID, relLinks, imgA.UID, nil); err != nil {
			return err
		}
		if err := tx.Connect(ctx, node.UID, relLinks, imgB.UID, nil); err != nil {
			return err
		}
		if err := tx.Connect(ctx, node.UID, relCreatedBy, user.UID, nil); err != nil {
			return err
		}
		link = linkFromNode(node)
		outcome = OutcomeCreated
		return nil
	})
	if err != nil {
		return nil, OutcomeFound, storeErr("failed to create proposal", err)
	}
	return link, outcome, nil
}

// Annotate finalizes a link: sets the annotation timestamp and type and
// makes user the sole annotator, replacing any previous one. Authorization
// is a boundary concern; callers check CanAnnotateLinks before calling.
// Re-annotation is allowed and fully replaces the previous state.
func (r *Repository) Annotate(ctx context.Context, link *VisualLink, user *User, linkType LinkType) error {
	if link == nil || user == nil {
		return apperrors.NewValidation("a link and an annotating user are required")
	}
	if !linkType.Valid() {
		return apperrors.NewValidation("invalid link type: %s", linkType)
	}

	now := time.Now().UTC()
	err := r.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.SetProps(ctx, link.UID, store.Props{
			"type":      string(linkType),
			"annotated": timestamp(now),
		}); err != nil {
			return err
		}
		annotators, err := tx.Neighbors(ctx, []string{link.UID}, relAnnotatedBy, store.Out, labelUser)
		if err != nil {
			return err
		}
		for _, previous := range annotators[link.UID] {
			if err := tx.Disconnect(ctx, link.UID, relAnnotatedBy, previous.UID); err != nil {
				return err
			}
		}
		return tx.Connect(ctx, link.UID, relAnnotatedBy, user.UID, nil)
	})
	if err != nil {
		return storeErr("failed to annotate link", err)
	}

	link.Type = linkType
	link.Annotated = &now
	return nil
}

// RemoveAnnotation reverts an annotated link to the PROPOSAL state and
// disconnects its annotator. A link without an annotator is left untouched.
func (r *Repository) RemoveAnnotation(ctx context.Context, link *VisualLink, user *User) error {
	if link == nil {
		return apperrors.NewValidation("a link is required")
	}

	reverted := false
	err := r.store.InTx(ctx, func(tx store.Store) error {
		annotators, err := tx.Neighbors(ctx, []string{link.UID}, relAnnotatedBy, store.Out, labelUser)
		if err != nil {
			return err
		}
		if len(annotators[link.UID]) == 0 {
			return nil
		}
		if err := tx.SetProps(ctx, link.UID, store.Props{
			"type":      string(LinkProposal),
			"annotated": nil,
		}); err != nil {
			return err
		}
		for _, previous := range annotators[link.UID] {
			if err := tx.Disconnect(ctx, link.UID, relAnnotatedBy, previous.UID); err != nil {
				return err
			}
		}
		reverted = true
		return nil
	})
	if err != nil {
		return storeErr("failed to remove annotation", err)
	}

	if reverted {
		link.Type = LinkProposal
		link.Annotated = nil
	}
	return nil
}

// LinkByUID fetches a VisualLink by its identifier.
func (r *Repository) LinkByUID(ctx context.Context, uid string) (*VisualLink, error) {
	node, err := r.nodeByUIDOrNotFound(ctx, r.store, labelVisualLink, "link", uid)
	if err != nil {
		return nil, err
	}
	return linkFromNode(node), nil
}

// LinkBetween returns the VisualLink over the unordered image pair, or nil
// when the pair is unlinked.
func (r *Repository) LinkBetween(ctx context.Context, imgAUID, imgBUID string) (*VisualLink, error) {
	link, err := findLinkBetween(ctx, r.store, imgAUID, imgBUID)
	if err != nil {
		return nil, storeErr("failed to look up link", err)
	}
	return link, nil
}

// LinkImages returns the two endpoint Images of a link.
func (r *Repository) LinkImages(ctx context.Context, link *VisualLink) ([]*Image, error) {
	peers, err := r.store.Neighbors(ctx, []string{link.UID}, relLinks, store.Out, labelImage)
	if err != nil {
		return nil, storeErr("failed to fetch link images", err)
	}
	images := make([]*Image, 0, len(peers[link.UID]))
	for _, node := range peers[link.UID] {
		images = append(images, imageFromNode(node))
	}
	return images, nil
}

// LinkAnnotator returns the current annotator of a link, or nil when the
// link is unannotated.
func (r *Repository) LinkAnnotator(ctx context.Context, link *VisualLink) (*User, error) {
	peers, err := r.store.Neighbors(ctx, []string{link.UID}, relAnnotatedBy, store.Out, labelUser)
	if err != nil {
		return nil, storeErr("failed to fetch link annotator", err)
	}
	if len(peers[link.UID]) == 0 {
		return nil, nil
	}
	return userFromNode(peers[link.UID][0]), nil
}

// LinkCreator returns the user that proposed the link.
func (r *Repository) LinkCreator(ctx context.Context, link *VisualLink) (*User, error) {
	peers, err := r.store.Neighbors(ctx, []string{link.UID}, relCreatedBy, store.Out, labelUser)
	if err != nil {
		return nil, storeErr("failed to fetch link creator", err)
	}
	if len(peers[link.UID]) == 0 {
		return nil, nil
	}
	return userFromNode(peers[link.UID][0]), nil
}

// RandomLinkProposals returns up to limit unannotated links, sampled
// without a fixed order. Fewer proposals than limit is not an error.
func (r *Repository) RandomLinkProposals(ctx context.Context, limit int) ([]*VisualLink, error) {
	nodes, err := r.store.Sample(ctx, store.NodeQuery{
		Label: labelVisualLink,
		Props: store.Props{"type": string(LinkProposal)},
	}, limit)
	if err != nil {
		return nil, storeErr("failed to sample link proposals", err)
	}
	links := make([]*VisualLink, 0, len(nodes))
	for _, node := range nodes {
		links = append(links, linkFromNode(node))
	}
	return links, nil
}

func findLinkBetween(ctx context.Context, st store.Store, imgAUID, imgBUID string) (*VisualLink, error) {
	nodes, err := st.FindNodes(ctx, store.NodeQuery{
		Label: labelVisualLink,
		Connected: []store.RelCond{
			{Rel: relLinks, Dir: store.Out, Peer: imgAUID},
			{Rel: relLinks, Dir: store.Out, Peer: imgBUID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return linkFromNode(nodes[0]), nil
}
