package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"artlink/backend/internal/graph"
	apperrors "artlink/backend/pkg/errors"
)

func (s *Server) handleGroups(c *gin.Context) {
	ctx := c.Request.Context()
	groups, err := s.repo.GroupsOwnedBy(ctx, currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(groups))
	for _, group := range groups {
		images, err := s.repo.GroupImages(ctx, group)
		if err != nil {
			s.respondError(c, err)
			return
		}
		out = append(out, gin.H{"group": group, "images": images})
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

func (s *Server) handleCreateGroup(c *gin.Context) {
	var req struct {
		Label string `json:"label" binding:"required"`
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := s.repo.CreateGroup(c.Request.Context(), req.Label, req.Notes, currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// handleSetGroupImages replaces the membership of one of the caller's own
// groups.
func (s *Server) handleSetGroupImages(c *gin.Context) {
	var req struct {
		Images []string `json:"images" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user := currentUser(c)
	group, err := s.groupOwnedBy(ctx, user, c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	images, err := s.repo.ImagesByUID(ctx, req.Images)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.repo.SetGroupImages(ctx, group, images); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "images": images})
}

// groupOwnedBy resolves a group and checks it belongs to user.
func (s *Server) groupOwnedBy(ctx context.Context, user *graph.User, uid string) (*graph.Group, error) {
	group, err := s.repo.GroupByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	owned, err := s.repo.GroupsOwnedBy(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, g := range owned {
		if g.UID == group.UID {
			return group, nil
		}
	}
	return nil, apperrors.NewValidation("group %s does not belong to user %s", uid, user.Username)
}
