package graph

import (
	"context"

	"artlink/backend/internal/store"
)

// ============================================================================
// Duplicate Filtering
// ============================================================================

// FilterDuplicateImages collapses a candidate list so that of every group
// of images connected through DUPLICATE links, only the earliest one in the
// input order survives. Equivalence is transitive across chains of
// DUPLICATE links, the input order is otherwise preserved, and unknown or
// unlinked uids pass through untouched. Running the filter on its own
// output changes nothing.
func (r *Repository) FilterDuplicateImages(ctx context.Context, imageUIDs []string) ([]string, error) {
	pairs, err := r.duplicatePairs(ctx, imageUIDs)
	if err != nil {
		return nil, err
	}
	return collapseByComponents(imageUIDs, pairs), nil
}

// FilterDuplicateWorks applies the same collapse at the work level: two
// works are equivalent when any image of one is a DUPLICATE of any image of
// the other.
func (r *Repository) FilterDuplicateWorks(ctx context.Context, workUIDs []string) ([]string, error) {
	shown, err := r.store.Neighbors(ctx, workUIDs, relIsShownBy, store.Out, labelImage)
	if err != nil {
		return nil, storeErr("failed to fetch work images", err)
	}

	workOf := make(map[string]string)
	imageUIDs := make([]string, 0, len(workUIDs))
	for _, workUID := range workUIDs {
		for _, img := range shown[workUID] {
			if _, ok := workOf[img.UID]; !ok {
				workOf[img.UID] = workUID
				imageUIDs = append(imageUIDs, img.UID)
			}
		}
	}

	imagePairs, err := r.duplicatePairs(ctx, imageUIDs)
	if err != nil {
		return nil, err
	}

	workPairs := make([][2]string, 0, len(imagePairs))
	for _, pair := range imagePairs {
		workA, workB := workOf[pair[0]], workOf[pair[1]]
		if workA != "" && workB != "" && workA != workB {
			workPairs = append(workPairs, [2]string{workA, workB})
		}
	}
	return collapseByComponents(workUIDs, workPairs), nil
}

// duplicatePairs returns the DUPLICATE-linked pairs whose endpoints both
// lie in the given set.
func (r *Repository) duplicatePairs(ctx context.Context, imageUIDs []string) ([][2]string, error) {
	if len(imageUIDs) == 0 {
		return nil, nil
	}
	inSet := make(map[string]bool, len(imageUIDs))
	for _, uid := range imageUIDs {
		inSet[uid] = true
	}

	byImage, err := r.store.Neighbors(ctx, imageUIDs, relLinks, store.In, labelVisualLink)
	if err != nil {
		return nil, storeErr("failed to fetch duplicate links", err)
	}
	duplicates := make(map[string]*store.Node)
	for _, links := range byImage {
		for _, ln := range links {
			if propString(ln, "type") == string(LinkDuplicate) {
				duplicates[ln.UID] = ln
			}
		}
	}
	if len(duplicates) == 0 {
		return nil, nil
	}

	linkUIDs := make([]string, 0, len(duplicates))
	for uid := range duplicates {
		linkUIDs = append(linkUIDs, uid)
	}
	endpoints, err := r.store.Neighbors(ctx, linkUIDs, relLinks, store.Out, labelImage)
	if err != nil {
		return nil, storeErr("failed to fetch duplicate link endpoints", err)
	}

	pairs := make([][2]string, 0, len(duplicates))
	for _, images := range endpoints {
		if len(images) != 2 {
			continue
		}
		a, b := images[0].UID, images[1].UID
		if inSet[a] && inSet[b] {
			pairs = append(pairs, [2]string{a, b})
		}
	}
	return pairs, nil
}

// collapseByComponents keeps, for each connected component over pairs, the
// member that appears first in ordered, and drops the rest. Elements not
// touched by any pair are kept as they are.
func collapseByComponents(ordered []string, pairs [][2]string) []string {
	if len(pairs) == 0 {
		return ordered
	}

	adjacent := make(map[string][]string)
	for _, pair := range pairs {
		adjacent[pair[0]] = append(adjacent[pair[0]], pair[1])
		adjacent[pair[1]] = append(adjacent[pair[1]], pair[0])
	}

	component := make(map[string]int)
	next := 0
	for _, uid := range ordered {
		if _, done := component[uid]; done {
			continue
		}
		if len(adjacent[uid]) == 0 {
			continue
		}
		stack := []string{uid}
		component[uid] = next
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, peer := range adjacent[current] {
				if _, done := component[peer]; !done {
					component[peer] = next
					stack = append(stack, peer)
				}
			}
		}
		next++
	}

	kept := make([]string, 0, len(ordered))
	taken := make(map[int]bool, next)
	for _, uid := range ordered {
		comp, linked := component[uid]
		if !linked {
			kept = append(kept, uid)
			continue
		}
		if !taken[comp] {
			taken[comp] = true
			kept = append(kept, uid)
		}
	}
	return kept
}
