package graph

import (
	"context"
	"time"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
)

// ============================================================================
// TripletComparison Operations
// ============================================================================

// CreateTriplet records a "which candidate is closer to the anchor"
// comparison task. The three images must be pairwise distinct and must
// belong to three distinct works. A triplet already covering the same
// anchor and candidate set is reused when existOK is set and is a conflict
// otherwise; candidate order does not distinguish triplets.
func (r *Repository) CreateTriplet(ctx context.Context, anchor, cand1, cand2 *Image, user *User, existOK bool) (*TripletComparison, Outcome, error) {
	if anchor == nil || cand1 == nil || cand2 == nil {
		return nil, OutcomeFound, apperrors.NewValidation("an anchor and two candidate images are required")
	}
	if user == nil {
		return nil, OutcomeFound, apperrors.NewValidation("a creating user is required")
	}
	if anchor.UID == cand1.UID || anchor.UID == cand2.UID || cand1.UID == cand2.UID {
		return nil, OutcomeFound, apperrors.NewValidation("triplet images must be pairwise distinct")
	}

	works := make(map[string]bool, 3)
	for _, img := range []*Image{anchor, cand1, cand2} {
		work, err := r.WorkForImage(ctx, img.UID)
		if err != nil {
			return nil, OutcomeFound, err
		}
		works[work.UID] = true
	}
	if len(works) != 3 {
		return nil, OutcomeFound, apperrors.NewValidation("triplet images must belong to three distinct works")
	}

	var triplet *TripletComparison
	outcome := OutcomeFound
	err := r.store.InTx(ctx, func(tx store.Store) error {
		existing, err := findTriplet(ctx, tx, anchor.UID, cand1.UID, cand2.UID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existOK {
				return apperrors.NewConflict("triplet already exists: %s", existing.UID)
			}
			triplet = existing
			return nil
		}

		node, err := tx.CreateNode(ctx, labelTriplet, newEntityProps())
		if err != nil {
			return err
		}
		if err := tx.Connect(ctx, node.UID, relAnchor, anchor.UID, nil); err != nil {
			return err
		}
		for _, cand := range []*Image{cand1, cand2} {
			if err := tx.Connect(ctx, node.UID, relCandidate, cand.UID, nil); err != nil {
				return err
			}
		}
		if err := tx.Connect(ctx, node.UID, relCreatedBy, user.UID, nil); err != nil {
			return err
		}
		triplet = tripletFromNode(node)
		outcome = OutcomeCreated
		return nil
	})
	if err != nil {
		return nil, OutcomeFound, storeErr("failed to create triplet", err)
	}
	return triplet, outcome, nil
}

// AnnotateTriplet records user's verdict: positive is the candidate judged
// closer to the anchor and negative is the other one. Both images must be
// exactly the triplet's two candidates. Re-annotation replaces the previous
// verdict and annotator atomically.
func (r *Repository) AnnotateTriplet(ctx context.Context, triplet *TripletComparison, user *User, positive, negative *Image) error {
	if triplet == nil || user == nil || positive == nil || negative == nil {
		return apperrors.NewValidation("a triplet, a user and a positive and negative image are required")
	}

	now := time.Now().UTC()
	err := r.store.InTx(ctx, func(tx store.Store) error {
		candidates, err := tx.Neighbors(ctx, []string{triplet.UID}, relCandidate, store.Out, labelImage)
		if err != nil {
			return err
		}
		isCandidate := make(map[string]bool, 2)
		for _, cand := range candidates[triplet.UID] {
			isCandidate[cand.UID] = true
		}
		if positive.UID == negative.UID || !isCandidate[positive.UID] || !isCandidate[negative.UID] {
			return apperrors.NewValidation("images not corresponding to this triplet")
		}

		for _, rel := range []string{relPositive, relNegative, relAnnotatedBy} {
			label := labelImage
			if rel == relAnnotatedBy {
				label = labelUser
			}
			peers, err := tx.Neighbors(ctx, []string{triplet.UID}, rel, store.Out, label)
			if err != nil {
				return err
			}
			for _, peer := range peers[triplet.UID] {
				if err := tx.Disconnect(ctx, triplet.UID, rel, peer.UID); err != nil {
					return err
				}
			}
		}

		if err := tx.SetProps(ctx, triplet.UID, store.Props{"annotated": timestamp(now)}); err != nil {
			return err
		}
		if err := tx.Connect(ctx, triplet.UID, relPositive, positive.UID, nil); err != nil {
			return err
		}
		if err := tx.Connect(ctx, triplet.UID, relNegative, negative.UID, nil); err != nil {
			return err
		}
		return tx.Connect(ctx, triplet.UID, relAnnotatedBy, user.UID, nil)
	})
	if err != nil {
		return storeErr("failed to annotate triplet", err)
	}

	triplet.Annotated = &now
	return nil
}

// TripletByUID fetches a TripletComparison by its identifier.
func (r *Repository) TripletByUID(ctx context.Context, uid string) (*TripletComparison, error) {
	node, err := r.nodeByUIDOrNotFound(ctx, r.store, labelTriplet, "triplet", uid)
	if err != nil {
		return nil, err
	}
	return tripletFromNode(node), nil
}

// TripletImages returns the anchor followed by the two candidates.
func (r *Repository) TripletImages(ctx context.Context, triplet *TripletComparison) (anchor *Image, candidates []*Image, err error) {
	anchors, err := r.store.Neighbors(ctx, []string{triplet.UID}, relAnchor, store.Out, labelImage)
	if err != nil {
		return nil, nil, storeErr("failed to fetch triplet anchor", err)
	}
	if len(anchors[triplet.UID]) == 0 {
		return nil, nil, apperrors.NewStore("triplet has no anchor", nil)
	}
	anchor = imageFromNode(anchors[triplet.UID][0])

	cands, err := r.store.Neighbors(ctx, []string{triplet.UID}, relCandidate, store.Out, labelImage)
	if err != nil {
		return nil, nil, storeErr("failed to fetch triplet candidates", err)
	}
	candidates = make([]*Image, 0, len(cands[triplet.UID]))
	for _, node := range cands[triplet.UID] {
		candidates = append(candidates, imageFromNode(node))
	}
	return anchor, candidates, nil
}

// RandomTripletProposals returns up to limit unannotated triplets.
func (r *Repository) RandomTripletProposals(ctx context.Context, limit int) ([]*TripletComparison, error) {
	nodes, err := r.store.Sample(ctx, store.NodeQuery{
		Label:  labelTriplet,
		Absent: []string{"annotated"},
	}, limit)
	if err != nil {
		return nil, storeErr("failed to sample triplet proposals", err)
	}
	triplets := make([]*TripletComparison, 0, len(nodes))
	for _, node := range nodes {
		triplets = append(triplets, tripletFromNode(node))
	}
	return triplets, nil
}

func findTriplet(ctx context.Context, st store.Store, anchorUID, cand1UID, cand2UID string) (*TripletComparison, error) {
	nodes, err := st.FindNodes(ctx, store.NodeQuery{
		Label: labelTriplet,
		Connected: []store.RelCond{
			{Rel: relAnchor, Dir: store.Out, Peer: anchorUID},
			{Rel: relCandidate, Dir: store.Out, Peer: cand1UID},
			{Rel: relCandidate, Dir: store.Out, Peer: cand2UID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return tripletFromNode(nodes[0]), nil
}
