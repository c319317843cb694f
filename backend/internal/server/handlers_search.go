package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"artlink/backend/internal/search"
	apperrors "artlink/backend/pkg/errors"
)

// handleSearch queries the visual-search service and optionally collapses
// the hits so each group of duplicate works is represented once.
func (s *Server) handleSearch(c *gin.Context) {
	if s.search == nil {
		s.respondError(c, apperrors.NewValidation("visual search is not configured"))
		return
	}

	var req struct {
		Positive         []string `json:"positive" binding:"required"`
		Negative         []string `json:"negative"`
		NbResults        int      `json:"nb_results"`
		Index            string   `json:"index"`
		FilterDuplicates bool     `json:"filter_duplicates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NbResults <= 0 {
		req.NbResults = 50
	}

	ctx := c.Request.Context()
	results, err := s.search.Similar(ctx, search.SimilarQuery{
		PositiveUIDs: req.Positive,
		NegativeUIDs: req.Negative,
		NbResults:    req.NbResults,
		Index:        req.Index,
	})
	if err != nil {
		s.respondError(c, apperrors.NewStore("similarity search failed", err))
		return
	}

	if req.FilterDuplicates {
		results, err = s.collapseDuplicateWorks(c, results)
		if err != nil {
			s.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleSearchRegion(c *gin.Context) {
	if s.search == nil {
		s.respondError(c, apperrors.NewValidation("visual search is not configured"))
		return
	}

	var req struct {
		Image     string     `json:"image" binding:"required"`
		Box       search.Box `json:"box"`
		NbResults int        `json:"nb_results"`
		Index     string     `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NbResults <= 0 {
		req.NbResults = 50
	}

	results, err := s.search.SimilarRegion(c.Request.Context(), search.RegionQuery{
		ImageUID:  req.Image,
		Box:       req.Box,
		NbResults: req.NbResults,
		Index:     req.Index,
	})
	if err != nil {
		s.respondError(c, apperrors.NewStore("region search failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleDistanceMatrix(c *gin.Context) {
	if s.search == nil {
		s.respondError(c, apperrors.NewValidation("visual search is not configured"))
		return
	}

	var req struct {
		Images []string `json:"images" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matrix, err := s.search.DistanceMatrix(c.Request.Context(), req.Images)
	if err != nil {
		s.respondError(c, apperrors.NewStore("distance matrix failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"distances": matrix})
}

// collapseDuplicateWorks keeps, per group of works connected through
// duplicate images, only the best scored hit. Hits whose image is unknown
// to the graph pass through untouched.
func (s *Server) collapseDuplicateWorks(c *gin.Context, results []search.Result) ([]search.Result, error) {
	ctx := c.Request.Context()

	workOf := make(map[string]string, len(results))
	workOrder := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, hit := range results {
		work, err := s.repo.WorkForImage(ctx, hit.ImageUID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		workOf[hit.ImageUID] = work.UID
		if !seen[work.UID] {
			seen[work.UID] = true
			workOrder = append(workOrder, work.UID)
		}
	}

	kept, err := s.repo.FilterDuplicateWorks(ctx, workOrder)
	if err != nil {
		return nil, err
	}
	surviving := make(map[string]bool, len(kept))
	for _, uid := range kept {
		surviving[uid] = true
	}

	filtered := make([]search.Result, 0, len(results))
	taken := make(map[string]bool, len(kept))
	for _, hit := range results {
		workUID, known := workOf[hit.ImageUID]
		if !known {
			filtered = append(filtered, hit)
			continue
		}
		if surviving[workUID] && !taken[workUID] {
			taken[workUID] = true
			filtered = append(filtered, hit)
		}
	}
	return filtered, nil
}
