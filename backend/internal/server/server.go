// Package server is the HTTP boundary: route wiring, token auth and the
// translation between JSON payloads and engine entities. Handlers resolve
// uids to entities before calling the engine and map the engine's error
// kinds onto status codes.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"artlink/backend/internal/graph"
	"artlink/backend/internal/search"
	"artlink/backend/pkg/config"
	apperrors "artlink/backend/pkg/errors"
	"artlink/backend/pkg/logger"
)

// Server holds the boundary's dependencies and the configured router.
type Server struct {
	cfg    *config.Config
	repo   *graph.Repository
	search *search.Client
	events *EventLog
	router *gin.Engine
	log    *zap.Logger
}

// New wires the routes over the given engine and search client. events
// may be nil when annotation event logging is disabled.
func New(cfg *config.Config, repo *graph.Repository, searchClient *search.Client, events *EventLog) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		repo:   repo,
		search: searchClient,
		events: events,
		log:    logger.Get(),
	}

	router := gin.New()
	router.Use(ginLogger(s.log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/auth", s.handleAuth)

	authed := api.Group("")
	authed.Use(s.authRequired())
	{
		authed.GET("/user/current", s.handleCurrentUser)
		authed.GET("/stats", s.handleStats)

		authed.GET("/collections", s.handleCollections)
		authed.GET("/collection/:uid", s.handleCollection)

		authed.GET("/element/:uid", s.handleElement)
		authed.GET("/element/random", s.handleRandomElements)
		authed.GET("/image/:uid", s.handleImage)

		authed.GET("/link/:uid", s.handleLink)
		authed.GET("/link/proposal/random", s.handleRandomLinkProposals)
		authed.POST("/link/related", s.handleRelated)
		authed.POST("/link/personal", s.handleCreatePersonalLink)
		authed.DELETE("/link/personal/:uid", s.handleDeletePersonalLink)
		authed.POST("/proposal/create", s.handleCreateProposal)

		authed.GET("/triplet/:uid", s.handleTriplet)
		authed.GET("/triplet/proposal/random", s.handleRandomTripletProposals)

		authed.POST("/graph", s.handleGraph)
		authed.POST("/graph/personal", s.handlePersonalGraph)

		authed.POST("/image/search", s.handleSearch)
		authed.POST("/image/search_region", s.handleSearchRegion)
		authed.POST("/image/distance_matrix", s.handleDistanceMatrix)

		authed.GET("/groups", s.handleGroups)
		authed.POST("/groups", s.handleCreateGroup)
		authed.PATCH("/groups/:uid", s.handleSetGroupImages)

		authed.POST("/log", s.handleLogEvent)

		annotator := authed.Group("")
		annotator.Use(s.annotatorRequired())
		{
			annotator.POST("/link/create", s.handleCreateLink)
			annotator.DELETE("/link/:uid/annotation", s.handleRemoveAnnotation)
			annotator.PUT("/triplet/:uid", s.handleResolveTriplet)
		}
	}

	s.router = router
	return s
}

// Router returns the configured handler for mounting.
func (s *Server) Router() http.Handler {
	return s.router
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		status = http.StatusConflict
	case apperrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrorTypeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrorTypeStore:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
