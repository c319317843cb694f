package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.repo.Stats(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) handleCollections(c *gin.Context) {
	colls, err := s.repo.TopCollections(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": colls})
}

func (s *Server) handleCollection(c *gin.Context) {
	ctx := c.Request.Context()
	coll, err := s.repo.CollectionByUID(ctx, c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	works, err := s.repo.CollectionWorks(ctx, coll)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": coll, "works": works})
}

func (s *Server) handleElement(c *gin.Context) {
	work, err := s.repo.WorkByUID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, work)
}

func (s *Server) handleRandomElements(c *gin.Context) {
	nb := intQuery(c, "nb", 10)
	works, err := s.repo.RandomWorks(c.Request.Context(), nb)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"works": works})
}

func (s *Server) handleImage(c *gin.Context) {
	ctx := c.Request.Context()
	image, err := s.repo.ImageByUID(ctx, c.Param("uid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	work, err := s.repo.WorkForImage(ctx, image.UID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": image, "work": work})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
