package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"artlink/backend/pkg/logger"
)

// Neo4jConfig holds connection settings for the Neo4j-backed store.
type Neo4jConfig struct {
	URI         string
	Username    string
	Password    string
	Database    string
	MaxPoolSize int
	TimeoutSecs int
}

// Neo4jStore implements Store over the Neo4j bolt driver.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	log      *zap.Logger
}

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	timeout := 10 * time.Second
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
			c.SocketConnectTimeout = timeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}

	return &Neo4jStore{
		driver:   driver,
		database: cfg.Database,
		log:      logger.Get(),
	}, nil
}

// Close closes the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema creates the uniqueness constraints the engine relies on:
// per-label uid uniqueness, one Image per resource locator, one User per
// username, and one VisualLink per unordered image pair (pair_key), which
// closes the concurrent-create race on proposals.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT image_uid IF NOT EXISTS FOR (n:Image) REQUIRE n.uid IS UNIQUE",
		"CREATE CONSTRAINT work_uid IF NOT EXISTS FOR (n:Work) REQUIRE n.uid IS UNIQUE",
		"CREATE CONSTRAINT collection_uid IF NOT EXISTS FOR (n:Collection) REQUIRE n.uid IS UNIQUE",
		"CREATE CONSTRAINT user_uid IF NOT EXISTS FOR (n:User) REQUIRE n.uid IS UNIQUE",
		"CREATE CONSTRAINT group_uid IF NOT EXISTS FOR (n:Group) REQUIRE n.uid IS UNIQUE",
		"CREATE CONSTRAINT visual_link_uid IF NOT EXISTS FOR (n:VisualLink) REQUIRE n.uid IS UNIQUE",
		"CREATE CONSTRAINT personal_link_uid IF NOT EXISTS FOR (n:PersonalLink) REQUIRE n.uid IS UNIQUE",
		"CREATE CONSTRAINT triplet_uid IF NOT EXISTS FOR (n:TripletComparison) REQUIRE n.uid IS UNIQUE",
		"CREATE CONSTRAINT image_resource IF NOT EXISTS FOR (n:Image) REQUIRE n.iiif_url IS UNIQUE",
		"CREATE CONSTRAINT user_name IF NOT EXISTS FOR (n:User) REQUIRE n.username IS UNIQUE",
		"CREATE CONSTRAINT link_pair IF NOT EXISTS FOR (n:VisualLink) REQUIRE n.pair_key IS UNIQUE",
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			s.log.Warn("failed to create constraint", zap.String("statement", stmt), zap.Error(err))
		}
	}
	return nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// cypherRunner abstracts over session- and transaction-scoped execution so
// every operation body is shared between the two.
type cypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]interface{}) (neo4j.ResultWithContext, error)
}

type sessionRunner struct {
	sess neo4j.SessionWithContext
}

func (r sessionRunner) Run(ctx context.Context, cypher string, params map[string]interface{}) (neo4j.ResultWithContext, error) {
	return r.sess.Run(ctx, cypher, params)
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (r txRunner) Run(ctx context.Context, cypher string, params map[string]interface{}) (neo4j.ResultWithContext, error) {
	return r.tx.Run(ctx, cypher, params)
}

func (s *Neo4jStore) read(ctx context.Context, fn func(r cypherRunner) error) error {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	return fn(sessionRunner{sess: session})
}

func (s *Neo4jStore) write(ctx context.Context, fn func(r cypherRunner) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	return fn(sessionRunner{sess: session})
}

// CreateNode implements Store.
func (s *Neo4jStore) CreateNode(ctx context.Context, label string, props Props) (*Node, error) {
	var node *Node
	err := s.write(ctx, func(r cypherRunner) error {
		var err error
		node, err = runCreateNode(ctx, r, label, props)
		return err
	})
	return node, err
}

// NodeByUID implements Store.
func (s *Neo4jStore) NodeByUID(ctx context.Context, label, uid string) (*Node, error) {
	var node *Node
	err := s.read(ctx, func(r cypherRunner) error {
		var err error
		node, err = runNodeByUID(ctx, r, label, uid)
		return err
	})
	return node, err
}

// NodesByUID implements Store.
func (s *Neo4jStore) NodesByUID(ctx context.Context, label string, uids []string) ([]*Node, error) {
	var nodes []*Node
	err := s.read(ctx, func(r cypherRunner) error {
		var err error
		nodes, err = runFindNodes(ctx, r, NodeQuery{Label: label, UIDs: uids})
		return err
	})
	return nodes, err
}

// SetProps implements Store.
func (s *Neo4jStore) SetProps(ctx context.Context, uid string, props Props) error {
	return s.write(ctx, func(r cypherRunner) error {
		return runSetProps(ctx, r, uid, props)
	})
}

// DeleteNode implements Store.
func (s *Neo4jStore) DeleteNode(ctx context.Context, uid string) error {
	return s.write(ctx, func(r cypherRunner) error {
		return runDeleteNode(ctx, r, uid)
	})
}

// Connect implements Store.
func (s *Neo4jStore) Connect(ctx context.Context, fromUID, rel, toUID string, props Props) error {
	return s.write(ctx, func(r cypherRunner) error {
		return runConnect(ctx, r, fromUID, rel, toUID, props)
	})
}

// Disconnect implements Store.
func (s *Neo4jStore) Disconnect(ctx context.Context, fromUID, rel, toUID string) error {
	return s.write(ctx, func(r cypherRunner) error {
		return runDisconnect(ctx, r, fromUID, rel, toUID)
	})
}

// FindNodes implements Store.
func (s *Neo4jStore) FindNodes(ctx context.Context, q NodeQuery) ([]*Node, error) {
	var nodes []*Node
	err := s.read(ctx, func(r cypherRunner) error {
		var err error
		nodes, err = runFindNodes(ctx, r, q)
		return err
	})
	return nodes, err
}

// Neighbors implements Store.
func (s *Neo4jStore) Neighbors(ctx context.Context, uids []string, rel string, dir Direction, peerLabel string) (map[string][]*Node, error) {
	var peers map[string][]*Node
	err := s.read(ctx, func(r cypherRunner) error {
		var err error
		peers, err = runNeighbors(ctx, r, uids, rel, dir, peerLabel)
		return err
	})
	return peers, err
}

// CountNodes implements Store.
func (s *Neo4jStore) CountNodes(ctx context.Context, q NodeQuery) (int64, error) {
	var count int64
	err := s.read(ctx, func(r cypherRunner) error {
		var err error
		count, err = runCountNodes(ctx, r, q)
		return err
	})
	return count, err
}

// Sample implements Store.
func (s *Neo4jStore) Sample(ctx context.Context, q NodeQuery, limit int) ([]*Node, error) {
	var nodes []*Node
	err := s.read(ctx, func(r cypherRunner) error {
		var err error
		nodes, err = runSample(ctx, r, q, limit)
		return err
	})
	return nodes, err
}

// InTx implements Store. The whole fn runs inside one managed write
// transaction; other readers observe all of its mutations or none.
func (s *Neo4jStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return nil, fn(&neo4jTx{runner: txRunner{tx: tx}})
	})
	return err
}

// neo4jTx is the transaction-scoped Store handed to InTx callbacks.
type neo4jTx struct {
	runner txRunner
}

func (t *neo4jTx) CreateNode(ctx context.Context, label string, props Props) (*Node, error) {
	return runCreateNode(ctx, t.runner, label, props)
}

func (t *neo4jTx) NodeByUID(ctx context.Context, label, uid string) (*Node, error) {
	return runNodeByUID(ctx, t.runner, label, uid)
}

func (t *neo4jTx) NodesByUID(ctx context.Context, label string, uids []string) ([]*Node, error) {
	return runFindNodes(ctx, t.runner, NodeQuery{Label: label, UIDs: uids})
}

func (t *neo4jTx) SetProps(ctx context.Context, uid string, props Props) error {
	return runSetProps(ctx, t.runner, uid, props)
}

func (t *neo4jTx) DeleteNode(ctx context.Context, uid string) error {
	return runDeleteNode(ctx, t.runner, uid)
}

func (t *neo4jTx) Connect(ctx context.Context, fromUID, rel, toUID string, props Props) error {
	return runConnect(ctx, t.runner, fromUID, rel, toUID, props)
}

func (t *neo4jTx) Disconnect(ctx context.Context, fromUID, rel, toUID string) error {
	return runDisconnect(ctx, t.runner, fromUID, rel, toUID)
}

func (t *neo4jTx) FindNodes(ctx context.Context, q NodeQuery) ([]*Node, error) {
	return runFindNodes(ctx, t.runner, q)
}

func (t *neo4jTx) Neighbors(ctx context.Context, uids []string, rel string, dir Direction, peerLabel string) (map[string][]*Node, error) {
	return runNeighbors(ctx, t.runner, uids, rel, dir, peerLabel)
}

func (t *neo4jTx) CountNodes(ctx context.Context, q NodeQuery) (int64, error) {
	return runCountNodes(ctx, t.runner, q)
}

func (t *neo4jTx) Sample(ctx context.Context, q NodeQuery, limit int) ([]*Node, error) {
	return runSample(ctx, t.runner, q, limit)
}

// InTx on a transaction-scoped store joins the enclosing transaction.
func (t *neo4jTx) InTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

// ---------------------------------------------------------------------------
// Operation bodies, shared between sessions and transactions
// ---------------------------------------------------------------------------

func runCreateNode(ctx context.Context, r cypherRunner, label string, props Props) (*Node, error) {
	if props == nil {
		props = Props{}
	}
	if _, ok := props["uid"]; !ok {
		return nil, fmt.Errorf("create node: props must contain a uid")
	}

	cypher := fmt.Sprintf("CREATE (n:%s) SET n = $props RETURN n, id(n) AS id", label)
	result, err := r.Run(ctx, cypher, map[string]interface{}{"props": map[string]interface{}(props)})
	if err != nil {
		return nil, createErr(label, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, createErr(label, err)
		}
		return nil, fmt.Errorf("failed to create %s node: no record returned", label)
	}
	return nodeFromRecord(result.Record(), label)
}

// createErr translates the server's constraint violation into
// ErrConstraint so callers do not have to know Neo4j error codes.
func createErr(label string, err error) error {
	var ne *neo4j.Neo4jError
	if errors.As(err, &ne) && ne.Code == "Neo.ClientError.Schema.ConstraintValidationFailed" {
		return fmt.Errorf("failed to create %s node: %w: %s", label, ErrConstraint, ne.Msg)
	}
	return fmt.Errorf("failed to create %s node: %w", label, err)
}

func runNodeByUID(ctx context.Context, r cypherRunner, label, uid string) (*Node, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {uid: $uid}) RETURN n, id(n) AS id", label)
	result, err := r.Run(ctx, cypher, map[string]interface{}{"uid": uid})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s node: %w", label, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch %s node: %w", label, err)
		}
		return nil, nil
	}
	return nodeFromRecord(result.Record(), label)
}

func runSetProps(ctx context.Context, r cypherRunner, uid string, props Props) error {
	// The count comes back so a vanished node fails instead of matching
	// nothing.
	result, err := r.Run(ctx,
		"MATCH (n {uid: $uid}) SET n += $props RETURN count(n) AS c",
		map[string]interface{}{"uid": uid, "props": map[string]interface{}(props)})
	if err != nil {
		return fmt.Errorf("failed to set props on %s: %w", uid, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return fmt.Errorf("failed to set props on %s: %w", uid, err)
		}
		return fmt.Errorf("set props: no such node: %s", uid)
	}
	c, _ := result.Record().Get("c")
	if count, _ := c.(int64); count == 0 {
		return fmt.Errorf("set props: no such node: %s", uid)
	}
	return nil
}

func runDeleteNode(ctx context.Context, r cypherRunner, uid string) error {
	_, err := r.Run(ctx,
		"MATCH (n {uid: $uid}) DETACH DELETE n",
		map[string]interface{}{"uid": uid})
	if err != nil {
		return fmt.Errorf("failed to delete node %s: %w", uid, err)
	}
	return nil
}

func runConnect(ctx context.Context, r cypherRunner, fromUID, rel, toUID string, props Props) error {
	if props == nil {
		props = Props{}
	}
	cypher := fmt.Sprintf(`
		MATCH (a {uid: $from})
		MATCH (b {uid: $to})
		MERGE (a)-[r:%s]->(b)
		SET r += $props`, rel)
	_, err := r.Run(ctx, cypher, map[string]interface{}{
		"from":  fromUID,
		"to":    toUID,
		"props": map[string]interface{}(props),
	})
	if err != nil {
		return fmt.Errorf("failed to connect %s-[%s]->%s: %w", fromUID, rel, toUID, err)
	}
	return nil
}

func runDisconnect(ctx context.Context, r cypherRunner, fromUID, rel, toUID string) error {
	cypher := fmt.Sprintf(`
		MATCH (a {uid: $from})-[r:%s]->(b {uid: $to})
		DELETE r`, rel)
	_, err := r.Run(ctx, cypher, map[string]interface{}{"from": fromUID, "to": toUID})
	if err != nil {
		return fmt.Errorf("failed to disconnect %s-[%s]->%s: %w", fromUID, rel, toUID, err)
	}
	return nil
}

func runFindNodes(ctx context.Context, r cypherRunner, q NodeQuery) ([]*Node, error) {
	cypher, params := buildNodeQuery(q, "RETURN DISTINCT n, id(n) AS id")
	result, err := r.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s nodes: %w", q.Label, err)
	}
	return collectNodes(ctx, result, q.Label)
}

func runNeighbors(ctx context.Context, r cypherRunner, uids []string, rel string, dir Direction, peerLabel string) (map[string][]*Node, error) {
	peers := make(map[string][]*Node, len(uids))
	if len(uids) == 0 {
		return peers, nil
	}

	pattern := fmt.Sprintf("(s)-[:%s]->(p:%s)", rel, peerLabel)
	if dir == In {
		pattern = fmt.Sprintf("(s)<-[:%s]-(p:%s)", rel, peerLabel)
	}
	cypher := fmt.Sprintf(`
		MATCH (s) WHERE s.uid IN $uids
		MATCH %s
		RETURN s.uid AS src, p AS n, id(p) AS id`, pattern)

	result, err := r.Run(ctx, cypher, map[string]interface{}{"uids": uids})
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s neighbors: %w", rel, err)
	}

	for result.Next(ctx) {
		record := result.Record()
		src, ok := record.Get("src")
		if !ok {
			continue
		}
		node, err := nodeFromRecord(record, peerLabel)
		if err != nil {
			return nil, err
		}
		srcUID, _ := src.(string)
		peers[srcUID] = append(peers[srcUID], node)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to expand %s neighbors: %w", rel, err)
	}
	return peers, nil
}

func runCountNodes(ctx context.Context, r cypherRunner, q NodeQuery) (int64, error) {
	cypher, params := buildNodeQuery(q, "RETURN count(DISTINCT n) AS c")
	result, err := r.Run(ctx, cypher, params)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s nodes: %w", q.Label, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return 0, fmt.Errorf("failed to count %s nodes: %w", q.Label, err)
		}
		return 0, nil
	}
	c, _ := result.Record().Get("c")
	count, _ := c.(int64)
	return count, nil
}

func runSample(ctx context.Context, r cypherRunner, q NodeQuery, limit int) ([]*Node, error) {
	// Per-row random ordering: approximately uniform, never filters out
	// an eligible row.
	cypher, params := buildNodeQuery(q, "RETURN DISTINCT n, id(n) AS id, rand() AS r ORDER BY r LIMIT $limit")
	params["limit"] = limit
	result, err := r.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s nodes: %w", q.Label, err)
	}
	return collectNodes(ctx, result, q.Label)
}

func buildNodeQuery(q NodeQuery, returning string) (string, map[string]interface{}) {
	var b strings.Builder
	params := map[string]interface{}{}

	fmt.Fprintf(&b, "MATCH (n:%s)\n", q.Label)
	for i, rc := range q.Connected {
		peer := fmt.Sprintf("p%d", i)
		if rc.Dir == Out {
			fmt.Fprintf(&b, "MATCH (n)-[:%s]->(%s {uid: $%s})\n", rc.Rel, peer, peer)
		} else {
			fmt.Fprintf(&b, "MATCH (n)<-[:%s]-(%s {uid: $%s})\n", rc.Rel, peer, peer)
		}
		params[peer] = rc.Peer
	}

	var conds []string
	if q.UIDs != nil {
		conds = append(conds, "n.uid IN $uids")
		params["uids"] = q.UIDs
	}
	i := 0
	for key, val := range q.Props {
		param := fmt.Sprintf("v%d", i)
		conds = append(conds, fmt.Sprintf("n.%s = $%s", key, param))
		params[param] = val
		i++
	}
	for _, key := range q.Absent {
		conds = append(conds, fmt.Sprintf("n.%s IS NULL", key))
	}
	if len(conds) > 0 {
		fmt.Fprintf(&b, "WHERE %s\n", strings.Join(conds, " AND "))
	}
	b.WriteString(returning)
	return b.String(), params
}

func collectNodes(ctx context.Context, result neo4j.ResultWithContext, label string) ([]*Node, error) {
	var nodes []*Node
	for result.Next(ctx) {
		node, err := nodeFromRecord(result.Record(), label)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to collect %s nodes: %w", label, err)
	}
	return nodes, nil
}

func nodeFromRecord(record *neo4j.Record, label string) (*Node, error) {
	raw, ok := record.Get("n")
	if !ok {
		return nil, fmt.Errorf("record has no node column")
	}
	dbNode, ok := raw.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected node value of type %T", raw)
	}

	var id int64
	if rawID, ok := record.Get("id"); ok {
		id, _ = rawID.(int64)
	}

	props := make(Props, len(dbNode.Props))
	for k, v := range dbNode.Props {
		props[k] = v
	}
	uid, _ := props["uid"].(string)

	return &Node{ID: id, UID: uid, Label: label, Props: props}, nil
}
