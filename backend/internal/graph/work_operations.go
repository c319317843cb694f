package graph

import (
	"context"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
)

// ============================================================================
// Work and Image Operations
// ============================================================================

// ImageInput describes one image of a work at ingestion time.
type ImageInput struct {
	IIIFURL string `json:"iiif_url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// WorkInput describes a work and its images at ingestion time.
type WorkInput struct {
	URI         string       `json:"uri"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Author      string       `json:"author"`
	Title       string       `json:"title"`
	Date        int          `json:"date"`
	Images      []ImageInput `json:"images"`
}

// CreateWork ingests a work and its images in one transaction, optionally
// attaching it to a collection. Every work needs at least one image, and
// iiif urls are globally unique, so re-ingesting an already known image is
// a conflict surfaced by the store's uniqueness constraint.
func (r *Repository) CreateWork(ctx context.Context, input WorkInput, collection *Collection) (*Work, error) {
	if input.URI == "" {
		return nil, apperrors.NewValidation("a work uri is required")
	}
	if len(input.Images) == 0 {
		return nil, apperrors.NewValidation("a work needs at least one image")
	}
	for _, img := range input.Images {
		if img.IIIFURL == "" {
			return nil, apperrors.NewValidation("every image needs an iiif url")
		}
	}

	var work *Work
	err := r.store.InTx(ctx, func(tx store.Store) error {
		props := newEntityProps()
		props["uri"] = input.URI
		props["label"] = input.Label
		props["description"] = input.Description
		props["author"] = input.Author
		props["title"] = input.Title
		props["date"] = int64(input.Date)
		workNode, err := tx.CreateNode(ctx, labelWork, props)
		if err != nil {
			return err
		}
		work = workFromNode(workNode)

		for _, img := range input.Images {
			imgProps := newEntityProps()
			imgProps["iiif_url"] = img.IIIFURL
			imgProps["width"] = int64(img.Width)
			imgProps["height"] = int64(img.Height)
			imgNode, err := tx.CreateNode(ctx, labelImage, imgProps)
			if err != nil {
				return err
			}
			if err := tx.Connect(ctx, work.UID, relIsShownBy, imgNode.UID, nil); err != nil {
				return err
			}
			work.Images = append(work.Images, imageFromNode(imgNode))
		}

		if collection != nil {
			return tx.Connect(ctx, collection.UID, relCollContains, work.UID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("failed to create work", err)
	}
	return work, nil
}

// WorkByUID fetches a work with its images.
func (r *Repository) WorkByUID(ctx context.Context, uid string) (*Work, error) {
	node, err := r.nodeByUIDOrNotFound(ctx, r.store, labelWork, "work", uid)
	if err != nil {
		return nil, err
	}
	work := workFromNode(node)
	if err := r.attachImages(ctx, []*Work{work}); err != nil {
		return nil, err
	}
	return work, nil
}

// WorkForImage resolves the unique work an image belongs to.
func (r *Repository) WorkForImage(ctx context.Context, imageUID string) (*Work, error) {
	peers, err := r.store.Neighbors(ctx, []string{imageUID}, relIsShownBy, store.In, labelWork)
	if err != nil {
		return nil, storeErr("failed to resolve work for image", err)
	}
	if len(peers[imageUID]) == 0 {
		return nil, apperrors.NewNotFound("work of image", imageUID)
	}
	return workFromNode(peers[imageUID][0]), nil
}

// RandomWorks samples up to limit works with their images.
func (r *Repository) RandomWorks(ctx context.Context, limit int) ([]*Work, error) {
	nodes, err := r.store.Sample(ctx, store.NodeQuery{Label: labelWork}, limit)
	if err != nil {
		return nil, storeErr("failed to sample works", err)
	}
	works := make([]*Work, 0, len(nodes))
	for _, node := range nodes {
		works = append(works, workFromNode(node))
	}
	if err := r.attachImages(ctx, works); err != nil {
		return nil, err
	}
	return works, nil
}

// ImageByUID fetches an image by identifier.
func (r *Repository) ImageByUID(ctx context.Context, uid string) (*Image, error) {
	node, err := r.nodeByUIDOrNotFound(ctx, r.store, labelImage, "image", uid)
	if err != nil {
		return nil, err
	}
	return imageFromNode(node), nil
}

// ImagesByUID fetches a batch of images, failing when any uid is unknown.
func (r *Repository) ImagesByUID(ctx context.Context, uids []string) ([]*Image, error) {
	nodes, err := r.store.NodesByUID(ctx, labelImage, uids)
	if err != nil {
		return nil, storeErr("failed to fetch images", err)
	}
	byUID := make(map[string]*Image, len(nodes))
	for _, node := range nodes {
		byUID[node.UID] = imageFromNode(node)
	}
	images := make([]*Image, 0, len(uids))
	for _, uid := range uids {
		img, ok := byUID[uid]
		if !ok {
			return nil, apperrors.NewNotFound("image", uid)
		}
		images = append(images, img)
	}
	return images, nil
}

func (r *Repository) attachImages(ctx context.Context, works []*Work) error {
	if len(works) == 0 {
		return nil
	}
	uids := make([]string, 0, len(works))
	for _, work := range works {
		uids = append(uids, work.UID)
	}
	shown, err := r.store.Neighbors(ctx, uids, relIsShownBy, store.Out, labelImage)
	if err != nil {
		return storeErr("failed to fetch work images", err)
	}
	for _, work := range works {
		work.Images = work.Images[:0]
		for _, node := range shown[work.UID] {
			work.Images = append(work.Images, imageFromNode(node))
		}
	}
	return nil
}
