// Package graph is the relationship-graph engine: typed entities over the
// graph store, the annotation state machine for pairwise links and triplet
// comparisons, bounded-depth subgraph extraction and duplicate-equivalence
// filtering. The engine is stateless between calls; all state lives in the
// store.
package graph

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
	"artlink/backend/pkg/logger"
)

// Repository exposes the engine operations over a graph store.
type Repository struct {
	store store.Store
	log   *zap.Logger
}

// NewRepository creates an engine over the given store.
func NewRepository(st store.Store) *Repository {
	return &Repository{
		store: st,
		log:   logger.Get(),
	}
}

// storeErr wraps a failure from the graph store into the engine's error
// taxonomy, leaving already-typed errors untouched so validation and
// conflict failures raised inside transactions keep their kind.
func storeErr(message string, err error) error {
	if err == nil {
		return nil
	}
	var base *apperrors.BaseError
	if stderrors.As(err, &base) {
		return err
	}
	if stderrors.Is(err, store.ErrConstraint) {
		return apperrors.NewConflict("%s: %v", message, err)
	}
	return apperrors.NewStore(message, err)
}

// nodeByUIDOrNotFound fetches a node and converts absence into a typed
// not-found error.
func (r *Repository) nodeByUIDOrNotFound(ctx context.Context, st store.Store, label, kind, uid string) (*store.Node, error) {
	node, err := st.NodeByUID(ctx, label, uid)
	if err != nil {
		return nil, storeErr("failed to fetch "+kind, err)
	}
	if node == nil {
		return nil, apperrors.NewNotFound(kind, uid)
	}
	return node, nil
}
