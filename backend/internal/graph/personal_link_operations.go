package graph

import (
	"context"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
)

// ============================================================================
// PersonalLink Operations
// ============================================================================

// CreatePersonalLink records a private association between two images for
// one user. Personal links carry no annotation state and are idempotent per
// creator: the same user linking the same pair twice gets the first link
// back. Two users may each hold their own link over the same pair.
func (r *Repository) CreatePersonalLink(ctx context.Context, imgA, imgB *Image, user *User) (*PersonalLink, Outcome, error) {
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

	var link *PersonalLink
	outcome := OutcomeFound
	err = r.store.InTx(ctx, func(tx store.Store) error {
		existing, err := findPersonalLinkBetween(ctx, tx, imgA.UID, imgB.UID, user.UID)
		if err != nil {
			return err
		}
		if existing != nil {
			link = existing
			return nil
		}

		node, err := tx.CreateNode(ctx, labelPersonalLink, newEntityProps())
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
		link = personalLinkFromNode(node)
		outcome = OutcomeCreated
		return nil
	})
	if err != nil {
		return nil, OutcomeFound, storeErr("failed to create personal link", err)
	}
	return link, outcome, nil
}

// PersonalLinkByUID fetches a PersonalLink by its identifier.
func (r *Repository) PersonalLinkByUID(ctx context.Context, uid string) (*PersonalLink, error) {
	node, err := r.nodeByUIDOrNotFound(ctx, r.store, labelPersonalLink, "personal link", uid)
	if err != nil {
		return nil, err
	}
	return personalLinkFromNode(node), nil
}

// DeletePersonalLink removes a personal link owned by user. Deleting
// another user's link is a validation failure.
func (r *Repository) DeletePersonalLink(ctx context.Context, link *PersonalLink, user *User) error {
	if link == nil || user == nil {
		return apperrors.NewValidation("a link and its owner are required")
	}
	peers, err := r.store.Neighbors(ctx, []string{link.UID}, relCreatedBy, store.Out, labelUser)
	if err != nil {
		return storeErr("failed to fetch personal link owner", err)
	}
	owners := peers[link.UID]
	if len(owners) == 0 || owners[0].UID != user.UID {
		return apperrors.NewValidation("personal link %s does not belong to user %s", link.UID, user.Username)
	}
	if err := r.store.DeleteNode(ctx, link.UID); err != nil {
		return storeErr("failed to delete personal link", err)
	}
	return nil
}

func findPersonalLinkBetween(ctx context.Context, st store.Store, imgAUID, imgBUID, userUID string) (*PersonalLink, error) {
	nodes, err := st.FindNodes(ctx, store.NodeQuery{
		Label: labelPersonalLink,
		Connected: []store.RelCond{
			{Rel: relLinks, Dir: store.Out, Peer: imgAUID},
			{Rel: relLinks, Dir: store.Out, Peer: imgBUID},
			{Rel: relCreatedBy, Dir: store.Out, Peer: userUID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return personalLinkFromNode(nodes[0]), nil
}
