// Package store defines the capability surface the annotation engine
// requires from a graph database: typed node CRUD, typed relationships,
// predicate queries, batch expansion, random sampling and transactions.
// The engine depends only on the Store interface, so the Neo4j-backed
// implementation can be swapped for the in-memory one in tests.
package store

import (
	"context"
	"errors"
)

// ErrConstraint marks a failed write that violated a uniqueness
// constraint. Both implementations wrap it so callers can distinguish
// constraint collisions from other store failures with errors.Is.
var ErrConstraint = errors.New("uniqueness constraint violated")

// Direction orients a relationship predicate relative to the queried node.
type Direction int

const (
	// Out matches (n)-[:REL]->(peer)
	Out Direction = iota
	// In matches (n)<-[:REL]-(peer)
	In
)

// Props is a bag of node or relationship properties. Values are limited
// to strings, int64, float64 and bool so that both implementations agree
// on equality. A nil value in SetProps removes the property.
type Props map[string]interface{}

// Node is a stored node projection. ID is the backend's internal row
// identifier; it is only meaningful for set membership and tie-break
// ordering and must never be exposed outside the process.
type Node struct {
	ID    int64
	UID   string
	Label string
	Props Props
}

// RelCond requires the matched node to have a relationship of the given
// type and direction to the peer node identified by uid.
type RelCond struct {
	Rel  string
	Dir  Direction
	Peer string
}

// NodeQuery is a declarative node predicate: label, optional uid-set
// membership, property equality, properties that must be unset, and
// relationship conditions that must all hold.
type NodeQuery struct {
	Label     string
	UIDs      []string
	Props     Props
	Absent    []string
	Connected []RelCond
}

// Store is the graph store capability interface.
//
// All methods block for the duration of the store round trip and honor
// context cancellation. Implementations must guarantee that InTx applies
// either every mutation made through the transaction-scoped Store or none
// of them.
type Store interface {
	// CreateNode persists a node with the given label and properties.
	// props must contain a "uid" key; the store enforces its uniqueness.
	CreateNode(ctx context.Context, label string, props Props) (*Node, error)

	// NodeByUID returns the node with the given label and uid, or nil
	// when no such node exists.
	NodeByUID(ctx context.Context, label, uid string) (*Node, error)

	// NodesByUID returns the nodes among uids that exist, in no
	// particular order. Missing uids are silently skipped.
	NodesByUID(ctx context.Context, label string, uids []string) ([]*Node, error)

	// SetProps merges props into the node's properties. Keys mapped to
	// nil are removed.
	SetProps(ctx context.Context, uid string, props Props) error

	// DeleteNode removes the node and all its relationships.
	DeleteNode(ctx context.Context, uid string) error

	// Connect ensures a relationship of type rel from fromUID to toUID,
	// merging props into its attributes.
	Connect(ctx context.Context, fromUID, rel, toUID string, props Props) error

	// Disconnect removes all relationships of type rel from fromUID to
	// toUID. Removing a relationship that does not exist is not an error.
	Disconnect(ctx context.Context, fromUID, rel, toUID string) error

	// FindNodes returns all nodes satisfying the query.
	FindNodes(ctx context.Context, q NodeQuery) ([]*Node, error)

	// Neighbors expands one hop from each of uids through relationships
	// of type rel in the given direction, keeping only peers with the
	// given label, and returns the peers grouped by origin uid.
	Neighbors(ctx context.Context, uids []string, rel string, dir Direction, peerLabel string) (map[string][]*Node, error)

	// CountNodes returns the number of nodes satisfying the query.
	CountNodes(ctx context.Context, q NodeQuery) (int64, error)

	// Sample returns up to limit nodes satisfying the query, sampled
	// without a fixed order. The contract is approximate uniformity: no
	// eligible node is ever excluded from selection, but the exact
	// distribution is unspecified.
	Sample(ctx context.Context, q NodeQuery, limit int) ([]*Node, error)

	// InTx runs fn with a transaction-scoped Store. If fn returns an
	// error the transaction is rolled back and the error is returned.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
