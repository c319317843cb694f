package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"artlink/backend/internal/graph"
	apperrors "artlink/backend/pkg/errors"
)

// defaultGraphDepth is the neighborhood radius when the client does not
// ask for one.
const defaultGraphDepth = 3

type graphRequest struct {
	Images        []string `json:"images" binding:"required"`
	Depth         *int     `json:"depth"`
	WithDistances bool     `json:"with_distances"`
}

func (r graphRequest) depth() int {
	if r.Depth == nil {
		return defaultGraphDepth
	}
	return *r.Depth
}

// handleGraph extracts the annotation neighborhood of the given images,
// optionally decorated with the feature distances between the resulting
// nodes.
func (s *Server) handleGraph(c *gin.Context) {
	var req graphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	nodes, edges, err := s.repo.Subgraph(ctx, req.Images, req.depth())
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := gin.H{"nodes": nodes, "edges": edges}
	if req.WithDistances {
		matrix, err := s.nodeDistances(c, nodes)
		if err != nil {
			s.respondError(c, err)
			return
		}
		resp["distances"] = matrix
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePersonalGraph(c *gin.Context) {
	var req graphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	nodes, edges, err := s.repo.SubgraphPersonal(ctx, req.Images, req.depth(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := gin.H{"nodes": nodes, "edges": edges}
	if req.WithDistances {
		matrix, err := s.nodeDistances(c, nodes)
		if err != nil {
			s.respondError(c, err)
			return
		}
		resp["distances"] = matrix
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) nodeDistances(c *gin.Context, nodes []*graph.Image) ([][]float64, error) {
	if s.search == nil {
		return nil, apperrors.NewValidation("distance computation is not configured")
	}
	uids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		uids = append(uids, node.UID)
	}
	matrix, err := s.search.DistanceMatrix(c.Request.Context(), uids)
	if err != nil {
		return nil, apperrors.NewStore("distance matrix failed", err)
	}
	return matrix, nil
}
