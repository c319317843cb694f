package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNodeQuery(t *testing.T) {
	cypher, params := buildNodeQuery(NodeQuery{Label: "Image"}, "RETURN n, id(n) AS id")
	assert.Equal(t, "MATCH (n:Image)\nRETURN n, id(n) AS id", cypher)
	assert.Empty(t, params)
}

func TestBuildNodeQueryConditions(t *testing.T) {
	cypher, params := buildNodeQuery(NodeQuery{
		Label:  "VisualLink",
		UIDs:   []string{"l1", "l2"},
		Props:  Props{"type": "PROPOSAL"},
		Absent: []string{"annotated"},
	}, "RETURN count(n) AS c")

	assert.Contains(t, cypher, "MATCH (n:VisualLink)")
	assert.Contains(t, cypher, "n.uid IN $uids")
	assert.Contains(t, cypher, "n.type = $v0")
	assert.Contains(t, cypher, "n.annotated IS NULL")
	assert.Contains(t, cypher, "RETURN count(n) AS c")
	assert.Equal(t, []string{"l1", "l2"}, params["uids"])
	assert.Equal(t, "PROPOSAL", params["v0"])
}

func TestBuildNodeQueryRelConds(t *testing.T) {
	cypher, params := buildNodeQuery(NodeQuery{
		Label: "VisualLink",
		Connected: []RelCond{
			{Rel: "LINKS", Dir: Out, Peer: "img-a"},
			{Rel: "CREATED_BY", Dir: Out, Peer: "user-1"},
			{Rel: "COLL_CONTAINS", Dir: In, Peer: "coll-1"},
		},
	}, "RETURN n, id(n) AS id")

	assert.Contains(t, cypher, "MATCH (n)-[:LINKS]->(p0 {uid: $p0})")
	assert.Contains(t, cypher, "MATCH (n)-[:CREATED_BY]->(p1 {uid: $p1})")
	assert.Contains(t, cypher, "MATCH (n)<-[:COLL_CONTAINS]-(p2 {uid: $p2})")
	require.Equal(t, "img-a", params["p0"])
	require.Equal(t, "user-1", params["p1"])
	require.Equal(t, "coll-1", params["p2"])
}
