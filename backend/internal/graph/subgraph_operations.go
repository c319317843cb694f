package graph

import (
	"context"
	"sort"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
)

// ============================================================================
// Subgraph Extraction
// ============================================================================

// Subgraph extracts the shared annotation neighborhood around the seed
// images. Each hop replaces the current node set with the images reachable
// through one VisualLink from it, so depth 0 yields the seeds alone and
// deeper extractions follow the link structure outward. Seeds that fall out
// of the frontier are fetched back in at the end; a seed that does not
// exist at all is NotFound. Only edges whose two endpoints are both in the
// final node set are reported.
func (r *Repository) Subgraph(ctx context.Context, seedUIDs []string, depth int) ([]*Image, []LinkEdge, error) {
	nodes, linkNodes, endpoints, err := r.subgraph(ctx, seedUIDs, depth, labelVisualLink, "")
	if err != nil {
		return nil, nil, err
	}

	edges := make([]LinkEdge, 0, len(linkNodes))
	for _, ln := range linkNodes {
		src, dst, ok := edgeEndpoints(endpoints[ln.UID], nodes)
		if !ok {
			continue
		}
		edges = append(edges, LinkEdge{SourceUID: src, TargetUID: dst, Link: linkFromNode(ln)})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Link.UID < edges[j].Link.UID })
	return imagesOf(nodes), edges, nil
}

// SubgraphPersonal is Subgraph over one user's PersonalLinks. Links created
// by other users are invisible to the traversal and to the edge report.
func (r *Repository) SubgraphPersonal(ctx context.Context, seedUIDs []string, depth int, user *User) ([]*Image, []PersonalEdge, error) {
	if user == nil {
		return nil, nil, apperrors.NewValidation("a user is required")
	}
	nodes, linkNodes, endpoints, err := r.subgraph(ctx, seedUIDs, depth, labelPersonalLink, user.UID)
	if err != nil {
		return nil, nil, err
	}

	edges := make([]PersonalEdge, 0, len(linkNodes))
	for _, ln := range linkNodes {
		src, dst, ok := edgeEndpoints(endpoints[ln.UID], nodes)
		if !ok {
			continue
		}
		edges = append(edges, PersonalEdge{SourceUID: src, TargetUID: dst, Link: personalLinkFromNode(ln)})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Link.UID < edges[j].Link.UID })
	return imagesOf(nodes), edges, nil
}

// subgraph runs the frontier-replacement walk and collects the link nodes
// and their image endpoints over the final node set. When creatorUID is
// non-empty, only links created by that user participate.
func (r *Repository) subgraph(ctx context.Context, seedUIDs []string, depth int, linkLabel, creatorUID string) (map[string]*store.Node, []*store.Node, map[string][]*store.Node, error) {
	if depth < 0 {
		return nil, nil, nil, apperrors.NewValidation("depth must not be negative")
	}

	seeds := make([]string, 0, len(seedUIDs))
	seen := make(map[string]bool, len(seedUIDs))
	for _, uid := range seedUIDs {
		if !seen[uid] {
			seen[uid] = true
			seeds = append(seeds, uid)
		}
	}

	frontier, err := r.store.NodesByUID(ctx, labelImage, seeds)
	if err != nil {
		return nil, nil, nil, storeErr("failed to fetch subgraph seeds", err)
	}
	if len(frontier) < len(seeds) {
		present := make(map[string]bool, len(frontier))
		for _, n := range frontier {
			present[n.UID] = true
		}
		for _, uid := range seeds {
			if !present[uid] {
				return nil, nil, nil, apperrors.NewNotFound("image", uid)
			}
		}
	}

	nodes := make(map[string]*store.Node, len(frontier))
	for _, n := range frontier {
		nodes[n.UID] = n
	}

	for hop := 0; hop < depth; hop++ {
		linkNodes, err := r.hopLinks(ctx, keysOf(nodes), linkLabel, creatorUID)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(linkNodes) == 0 {
			nodes = map[string]*store.Node{}
			break
		}
		peers, err := r.store.Neighbors(ctx, uidsOf(linkNodes), relLinks, store.Out, labelImage)
		if err != nil {
			return nil, nil, nil, storeErr("failed to expand subgraph frontier", err)
		}
		next := make(map[string]*store.Node)
		for _, images := range peers {
			for _, img := range images {
				next[img.UID] = img
			}
		}
		nodes = next
	}

	// Seeds always belong to the result, even when the walk moved past them.
	for _, n := range frontier {
		nodes[n.UID] = n
	}

	linkNodes, err := r.hopLinks(ctx, keysOf(nodes), linkLabel, creatorUID)
	if err != nil {
		return nil, nil, nil, err
	}
	endpoints := make(map[string][]*store.Node, len(linkNodes))
	if len(linkNodes) > 0 {
		peers, err := r.store.Neighbors(ctx, uidsOf(linkNodes), relLinks, store.Out, labelImage)
		if err != nil {
			return nil, nil, nil, storeErr("failed to fetch subgraph edges", err)
		}
		endpoints = peers
	}
	return nodes, linkNodes, endpoints, nil
}

// hopLinks returns the distinct link nodes touching any of the given
// images, optionally restricted to one creator.
func (r *Repository) hopLinks(ctx context.Context, imageUIDs []string, linkLabel, creatorUID string) ([]*store.Node, error) {
	byImage, err := r.store.Neighbors(ctx, imageUIDs, relLinks, store.In, linkLabel)
	if err != nil {
		return nil, storeErr("failed to fetch subgraph links", err)
	}
	unique := make(map[string]*store.Node)
	for _, links := range byImage {
		for _, ln := range links {
			unique[ln.UID] = ln
		}
	}
	linkNodes := make([]*store.Node, 0, len(unique))
	for _, ln := range unique {
		linkNodes = append(linkNodes, ln)
	}
	sort.Slice(linkNodes, func(i, j int) bool { return linkNodes[i].UID < linkNodes[j].UID })

	if creatorUID == "" || len(linkNodes) == 0 {
		return linkNodes, nil
	}
	creators, err := r.store.Neighbors(ctx, uidsOf(linkNodes), relCreatedBy, store.Out, labelUser)
	if err != nil {
		return nil, storeErr("failed to fetch link creators", err)
	}
	owned := linkNodes[:0]
	for _, ln := range linkNodes {
		for _, creator := range creators[ln.UID] {
			if creator.UID == creatorUID {
				owned = append(owned, ln)
				break
			}
		}
	}
	return owned, nil
}

// edgeEndpoints orders a link's two endpoints by internal node identity and
// reports whether both fall inside the node set.
func edgeEndpoints(images []*store.Node, nodes map[string]*store.Node) (string, string, bool) {
	if len(images) != 2 {
		return "", "", false
	}
	src, dst := images[0], images[1]
	if dst.ID < src.ID {
		src, dst = dst, src
	}
	if _, ok := nodes[src.UID]; !ok {
		return "", "", false
	}
	if _, ok := nodes[dst.UID]; !ok {
		return "", "", false
	}
	return src.UID, dst.UID, true
}

func imagesOf(nodes map[string]*store.Node) []*Image {
	images := make([]*Image, 0, len(nodes))
	for _, n := range nodes {
		images = append(images, imageFromNode(n))
	}
	sort.Slice(images, func(i, j int) bool { return images[i].UID < images[j].UID })
	return images
}

func keysOf(nodes map[string]*store.Node) []string {
	uids := make([]string, 0, len(nodes))
	for uid := range nodes {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}
