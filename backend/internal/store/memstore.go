package store

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// memSchema mirrors the uniqueness constraints EnsureSchema installs on
// the Neo4j side, so engine behavior matches across both implementations.
var memSchema = map[string][]string{
	"Image":      {"iiif_url"},
	"User":       {"username"},
	"VisualLink": {"pair_key"},
}

// MemStore is an adjacency-list Store used in tests. Writers are
// serialized with a mutex; InTx snapshots state and restores it when the
// callback fails, giving the same all-or-nothing visibility as the
// Neo4j-backed store.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	nodes  map[string]*memNode
	out    map[string][]*memEdge
	in     map[string][]*memEdge
}

type memNode struct {
	id    int64
	label string
	props Props
}

type memEdge struct {
	from  string
	rel   string
	to    string
	props Props
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes: make(map[string]*memNode),
		out:   make(map[string][]*memEdge),
		in:    make(map[string][]*memEdge),
	}
}

// CreateNode implements Store.
func (m *MemStore) CreateNode(ctx context.Context, label string, props Props) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createNodeLocked(label, props)
}

// NodeByUID implements Store.
func (m *MemStore) NodeByUID(ctx context.Context, label, uid string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodeByUIDLocked(label, uid), nil
}

// NodesByUID implements Store.
func (m *MemStore) NodesByUID(ctx context.Context, label string, uids []string) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matchLocked(NodeQuery{Label: label, UIDs: uids}), nil
}

// SetProps implements Store.
func (m *MemStore) SetProps(ctx context.Context, uid string, props Props) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setPropsLocked(uid, props)
}

// DeleteNode implements Store.
func (m *MemStore) DeleteNode(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteNodeLocked(uid)
	return nil
}

// Connect implements Store.
func (m *MemStore) Connect(ctx context.Context, fromUID, rel, toUID string, props Props) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(fromUID, rel, toUID, props)
}

// Disconnect implements Store.
func (m *MemStore) Disconnect(ctx context.Context, fromUID, rel, toUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked(fromUID, rel, toUID)
	return nil
}

// FindNodes implements Store.
func (m *MemStore) FindNodes(ctx context.Context, q NodeQuery) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matchLocked(q), nil
}

// Neighbors implements Store.
func (m *MemStore) Neighbors(ctx context.Context, uids []string, rel string, dir Direction, peerLabel string) (map[string][]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.neighborsLocked(uids, rel, dir, peerLabel), nil
}

// CountNodes implements Store.
func (m *MemStore) CountNodes(ctx context.Context, q NodeQuery) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matchLocked(q))), nil
}

// Sample implements Store.
func (m *MemStore) Sample(ctx context.Context, q NodeQuery, limit int) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := m.matchLocked(q)
	rand.Shuffle(len(matched), func(i, j int) {
		matched[i], matched[j] = matched[j], matched[i]
	})
	if limit >= 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// InTx implements Store. The mutex serializes concurrent writers, and a
// snapshot restores pre-transaction state when fn fails.
func (m *MemStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked()
	if err := fn(&memTx{store: m}); err != nil {
		m.restoreLocked(snap)
		return err
	}
	return nil
}

// memTx exposes the unlocked operations to InTx callbacks; the enclosing
// InTx already holds the write lock.
type memTx struct {
	store *MemStore
}

func (t *memTx) CreateNode(ctx context.Context, label string, props Props) (*Node, error) {
	return t.store.createNodeLocked(label, props)
}

func (t *memTx) NodeByUID(ctx context.Context, label, uid string) (*Node, error) {
	return t.store.nodeByUIDLocked(label, uid), nil
}

func (t *memTx) NodesByUID(ctx context.Context, label string, uids []string) ([]*Node, error) {
	return t.store.matchLocked(NodeQuery{Label: label, UIDs: uids}), nil
}

func (t *memTx) SetProps(ctx context.Context, uid string, props Props) error {
	return t.store.setPropsLocked(uid, props)
}

func (t *memTx) DeleteNode(ctx context.Context, uid string) error {
	t.store.deleteNodeLocked(uid)
	return nil
}

func (t *memTx) Connect(ctx context.Context, fromUID, rel, toUID string, props Props) error {
	return t.store.connectLocked(fromUID, rel, toUID, props)
}

func (t *memTx) Disconnect(ctx context.Context, fromUID, rel, toUID string) error {
	t.store.disconnectLocked(fromUID, rel, toUID)
	return nil
}

func (t *memTx) FindNodes(ctx context.Context, q NodeQuery) ([]*Node, error) {
	return t.store.matchLocked(q), nil
}

func (t *memTx) Neighbors(ctx context.Context, uids []string, rel string, dir Direction, peerLabel string) (map[string][]*Node, error) {
	return t.store.neighborsLocked(uids, rel, dir, peerLabel), nil
}

func (t *memTx) CountNodes(ctx context.Context, q NodeQuery) (int64, error) {
	return int64(len(t.store.matchLocked(q))), nil
}

func (t *memTx) Sample(ctx context.Context, q NodeQuery, limit int) ([]*Node, error) {
	matched := t.store.matchLocked(q)
	rand.Shuffle(len(matched), func(i, j int) {
		matched[i], matched[j] = matched[j], matched[i]
	})
	if limit >= 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (t *memTx) InTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

// ---------------------------------------------------------------------------
// Unlocked operation bodies
// ---------------------------------------------------------------------------

func (m *MemStore) createNodeLocked(label string, props Props) (*Node, error) {
	uid, _ := props["uid"].(string)
	if uid == "" {
		return nil, fmt.Errorf("create node: props must contain a uid")
	}
	if _, exists := m.nodes[uid]; exists {
		return nil, fmt.Errorf("create node: uid %s: %w", uid, ErrConstraint)
	}
	for _, key := range memSchema[label] {
		val, ok := props[key]
		if !ok || val == nil {
			continue
		}
		for _, other := range m.nodes {
			if other.label == label && other.props[key] == normalizeValue(val) {
				return nil, fmt.Errorf("create node: %s.%s: %w", label, key, ErrConstraint)
			}
		}
	}

	m.nextID++
	node := &memNode{id: m.nextID, label: label, props: normalizeProps(props)}
	m.nodes[uid] = node
	return m.toNode(uid, node), nil
}

func (m *MemStore) nodeByUIDLocked(label, uid string) *Node {
	node, ok := m.nodes[uid]
	if !ok || node.label != label {
		return nil
	}
	return m.toNode(uid, node)
}

func (m *MemStore) setPropsLocked(uid string, props Props) error {
	node, ok := m.nodes[uid]
	if !ok {
		return fmt.Errorf("set props: no such node: %s", uid)
	}
	for key, val := range props {
		if val == nil {
			delete(node.props, key)
			continue
		}
		node.props[key] = normalizeValue(val)
	}
	return nil
}

func (m *MemStore) deleteNodeLocked(uid string) {
	delete(m.nodes, uid)
	for _, edge := range m.out[uid] {
		m.in[edge.to] = removeEdges(m.in[edge.to], edge)
	}
	for _, edge := range m.in[uid] {
		m.out[edge.from] = removeEdges(m.out[edge.from], edge)
	}
	delete(m.out, uid)
	delete(m.in, uid)
}

func (m *MemStore) connectLocked(fromUID, rel, toUID string, props Props) error {
	if _, ok := m.nodes[fromUID]; !ok {
		return fmt.Errorf("connect: no such node: %s", fromUID)
	}
	if _, ok := m.nodes[toUID]; !ok {
		return fmt.Errorf("connect: no such node: %s", toUID)
	}
	// MERGE semantics: an existing relationship only has its props updated.
	for _, edge := range m.out[fromUID] {
		if edge.rel == rel && edge.to == toUID {
			for key, val := range props {
				if val == nil {
					delete(edge.props, key)
					continue
				}
				edge.props[key] = normalizeValue(val)
			}
			return nil
		}
	}
	edge := &memEdge{from: fromUID, rel: rel, to: toUID, props: normalizeProps(props)}
	m.out[fromUID] = append(m.out[fromUID], edge)
	m.in[toUID] = append(m.in[toUID], edge)
	return nil
}

func (m *MemStore) disconnectLocked(fromUID, rel, toUID string) {
	var removed []*memEdge
	kept := m.out[fromUID][:0]
	for _, edge := range m.out[fromUID] {
		if edge.rel == rel && edge.to == toUID {
			removed = append(removed, edge)
			continue
		}
		kept = append(kept, edge)
	}
	m.out[fromUID] = kept
	for _, edge := range removed {
		m.in[toUID] = removeEdges(m.in[toUID], edge)
	}
}

func (m *MemStore) matchLocked(q NodeQuery) []*Node {
	var uidSet map[string]struct{}
	if q.UIDs != nil {
		uidSet = make(map[string]struct{}, len(q.UIDs))
		for _, uid := range q.UIDs {
			uidSet[uid] = struct{}{}
		}
	}

	var matched []*Node
	for uid, node := range m.nodes {
		if node.label != q.Label {
			continue
		}
		if uidSet != nil {
			if _, ok := uidSet[uid]; !ok {
				continue
			}
		}
		if !propsMatch(node.props, q.Props, q.Absent) {
			continue
		}
		if !m.relCondsMatchLocked(uid, q.Connected) {
			continue
		}
		matched = append(matched, m.toNode(uid, node))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

func (m *MemStore) relCondsMatchLocked(uid string, conds []RelCond) bool {
	for _, rc := range conds {
		edges := m.out[uid]
		if rc.Dir == In {
			edges = m.in[uid]
		}
		found := false
		for _, edge := range edges {
			if edge.rel != rc.Rel {
				continue
			}
			peer := edge.to
			if rc.Dir == In {
				peer = edge.from
			}
			if peer == rc.Peer {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *MemStore) neighborsLocked(uids []string, rel string, dir Direction, peerLabel string) map[string][]*Node {
	peers := make(map[string][]*Node, len(uids))
	for _, uid := range uids {
		edges := m.out[uid]
		if dir == In {
			edges = m.in[uid]
		}
		for _, edge := range edges {
			if edge.rel != rel {
				continue
			}
			peerUID := edge.to
			if dir == In {
				peerUID = edge.from
			}
			peer, ok := m.nodes[peerUID]
			if !ok || peer.label != peerLabel {
				continue
			}
			peers[uid] = append(peers[uid], m.toNode(peerUID, peer))
		}
		sort.Slice(peers[uid], func(i, j int) bool { return peers[uid][i].ID < peers[uid][j].ID })
	}
	return peers
}

func (m *MemStore) toNode(uid string, node *memNode) *Node {
	props := make(Props, len(node.props))
	for k, v := range node.props {
		props[k] = v
	}
	return &Node{ID: node.id, UID: uid, Label: node.label, Props: props}
}

type memSnapshot struct {
	nextID int64
	nodes  map[string]*memNode
	out    map[string][]*memEdge
	in     map[string][]*memEdge
}

func (m *MemStore) snapshotLocked() memSnapshot {
	snap := memSnapshot{
		nextID: m.nextID,
		nodes:  make(map[string]*memNode, len(m.nodes)),
		out:    make(map[string][]*memEdge, len(m.out)),
		in:     make(map[string][]*memEdge, len(m.in)),
	}
	edgeCopies := make(map[*memEdge]*memEdge)
	copyEdge := func(edge *memEdge) *memEdge {
		if dup, ok := edgeCopies[edge]; ok {
			return dup
		}
		dup := &memEdge{from: edge.from, rel: edge.rel, to: edge.to, props: make(Props, len(edge.props))}
		for k, v := range edge.props {
			dup.props[k] = v
		}
		edgeCopies[edge] = dup
		return dup
	}
	for uid, node := range m.nodes {
		props := make(Props, len(node.props))
		for k, v := range node.props {
			props[k] = v
		}
		snap.nodes[uid] = &memNode{id: node.id, label: node.label, props: props}
	}
	for uid, edges := range m.out {
		dup := make([]*memEdge, len(edges))
		for i, edge := range edges {
			dup[i] = copyEdge(edge)
		}
		snap.out[uid] = dup
	}
	for uid, edges := range m.in {
		dup := make([]*memEdge, len(edges))
		for i, edge := range edges {
			dup[i] = copyEdge(edge)
		}
		snap.in[uid] = dup
	}
	return snap
}

func (m *MemStore) restoreLocked(snap memSnapshot) {
	m.nextID = snap.nextID
	m.nodes = snap.nodes
	m.out = snap.out
	m.in = snap.in
}

func removeEdges(edges []*memEdge, target *memEdge) []*memEdge {
	kept := edges[:0]
	for _, edge := range edges {
		if edge != target {
			kept = append(kept, edge)
		}
	}
	return kept
}

func propsMatch(props, want Props, absent []string) bool {
	for key, val := range want {
		have, ok := props[key]
		if !ok || have != normalizeValue(val) {
			return false
		}
	}
	for _, key := range absent {
		if val, ok := props[key]; ok && val != nil {
			return false
		}
	}
	return true
}

func normalizeProps(props Props) Props {
	normalized := make(Props, len(props))
	for k, v := range props {
		if v == nil {
			continue
		}
		normalized[k] = normalizeValue(v)
	}
	return normalized
}

// normalizeValue widens numeric types so equality checks behave like the
// bolt protocol, which transports all integers as int64.
func normalizeValue(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
