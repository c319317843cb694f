package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"artlink/backend/internal/graph"
	apperrors "artlink/backend/pkg/errors"
)

func (s *Server) handleLink(c *gin.Context) {
	ctx := c.Request.Context()
	link, err := s.repo.LinkByUID(ctx, c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	images, err := s.repo.LinkImages(ctx, link)
	if err != nil {
		s.respondError(c, err)
		return
	}
	annotator, err := s.repo.LinkAnnotator(ctx, link)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link, "images": images, "annotator": annotator})
}

type linkRequest struct {
	Image1 string `json:"img1" binding:"required"`
	Image2 string `json:"img2" binding:"required"`
}

// handleCreateProposal records an unannotated link between two images.
// Re-proposing a linked pair returns the existing link.
func (s *Server) handleCreateProposal(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	images, err := s.repo.ImagesByUID(ctx, []string{req.Image1, req.Image2})
	if err != nil {
		s.respondError(c, err)
		return
	}

	link, outcome, err := s.repo.CreateProposal(ctx, images[0], images[1], currentUser(c), true)
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if outcome == graph.OutcomeFound {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"link": link, "created": outcome == graph.OutcomeCreated})
}

// handleCreateLink proposes and annotates in one step. A pair whose link
// is already annotated is a conflict; an open proposal is finalized.
func (s *Server) handleCreateLink(c *gin.Context) {
	var req struct {
		linkRequest
		Type graph.LinkType `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user := currentUser(c)
	images, err := s.repo.ImagesByUID(ctx, []string{req.Image1, req.Image2})
	if err != nil {
		s.respondError(c, err)
		return
	}

	link, outcome, err := s.repo.CreateProposal(ctx, images[0], images[1], user, true)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if outcome == graph.OutcomeFound && link.Annotated != nil {
		s.respondError(c, apperrors.NewConflict("link %s is already annotated", link.UID))
		return
	}
	if err := s.repo.Annotate(ctx, link, user, req.Type); err != nil {
		s.respondError(c, err)
		return
	}

	s.logEvent(user.Username, gin.H{
		"event": "link_annotated",
		"link":  link.UID,
		"type":  string(req.Type),
	})
	c.JSON(http.StatusCreated, gin.H{"link": link})
}

func (s *Server) handleRemoveAnnotation(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	link, err := s.repo.LinkByUID(ctx, c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.repo.RemoveAnnotation(ctx, link, user); err != nil {
		s.respondError(c, err)
		return
	}

	s.logEvent(user.Username, gin.H{
		"event": "annotation_removed",
		"link":  link.UID,
	})
	c.JSON(http.StatusOK, gin.H{"link": link})
}

// handleCreatePersonalLink records a private association visible only to
// its creator. Re-linking an already linked pair returns the existing link.
func (s *Server) handleCreatePersonalLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	images, err := s.repo.ImagesByUID(ctx, []string{req.Image1, req.Image2})
	if err != nil {
		s.respondError(c, err)
		return
	}

	link, outcome, err := s.repo.CreatePersonalLink(ctx, images[0], images[1], currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if outcome == graph.OutcomeFound {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"link": link, "created": outcome == graph.OutcomeCreated})
}

func (s *Server) handleDeletePersonalLink(c *gin.Context) {
	ctx := c.Request.Context()
	link, err := s.repo.PersonalLinkByUID(ctx, c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.repo.DeletePersonalLink(ctx, link, currentUser(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": link.UID})
}

func (s *Server) handleRandomLinkProposals(c *gin.Context) {
	ctx := c.Request.Context()
	links, err := s.repo.RandomLinkProposals(ctx, intQuery(c, "nb", 1))
	if err != nil {
		s.respondError(c, err)
		return
	}

	proposals := make([]gin.H, 0, len(links))
	for _, link := range links {
		images, err := s.repo.LinkImages(ctx, link)
		if err != nil {
			s.respondError(c, err)
			return
		}
		proposals = append(proposals, gin.H{"link": link, "images": images})
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// handleRelated reports the links among a set of images, as a depth-0
// extraction.
func (s *Server) handleRelated(c *gin.Context) {
	var req struct {
		Images []string `json:"images" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	nodes, edges, err := s.repo.Subgraph(c.Request.Context(), req.Images, 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes, "edges": edges})
}

func (s *Server) handleTriplet(c *gin.Context) {
	ctx := c.Request.Context()
	triplet, err := s.repo.TripletByUID(ctx, c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	anchor, candidates, err := s.repo.TripletImages(ctx, triplet)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"triplet": triplet, "anchor": anchor, "candidates": candidates})
}

func (s *Server) handleResolveTriplet(c *gin.Context) {
	var req struct {
		Positive string `json:"positive" binding:"required"`
		Negative string `json:"negative" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user := currentUser(c)
	triplet, err := s.repo.TripletByUID(ctx, c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	images, err := s.repo.ImagesByUID(ctx, []string{req.Positive, req.Negative})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.repo.AnnotateTriplet(ctx, triplet, user, images[0], images[1]); err != nil {
		s.respondError(c, err)
		return
	}

	s.logEvent(user.Username, gin.H{
		"event":    "triplet_resolved",
		"triplet":  triplet.UID,
		"positive": req.Positive,
	})
	c.JSON(http.StatusOK, gin.H{"triplet": triplet})
}

func (s *Server) handleRandomTripletProposals(c *gin.Context) {
	ctx := c.Request.Context()
	triplets, err := s.repo.RandomTripletProposals(ctx, intQuery(c, "nb", 1))
	if err != nil {
		s.respondError(c, err)
		return
	}

	proposals := make([]gin.H, 0, len(triplets))
	for _, triplet := range triplets {
		anchor, candidates, err := s.repo.TripletImages(ctx, triplet)
		if err != nil {
			s.respondError(c, err)
			return
		}
		proposals = append(proposals, gin.H{
			"triplet":    triplet,
			"anchor":     anchor,
			"candidates": candidates,
		})
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}
