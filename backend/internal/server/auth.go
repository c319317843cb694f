package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"artlink/backend/internal/graph"
)

const userContextKey = "currentUser"

type tokenClaims struct {
	UserUID  string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// handleAuth exchanges a username/password pair for a signed token.
func (s *Server) handleAuth(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.repo.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	ttl := time.Duration(s.cfg.TokenTTLDays) * 24 * time.Hour
	claims := tokenClaims{
		UserUID:  user.UID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) handleCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// authRequired resolves the bearer token to a User and aborts with 401
// when the token is absent, invalid, expired or points at a deleted user.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims := &tokenClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := s.repo.UserByUID(c.Request.Context(), claims.UserUID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// annotatorRequired gates the endpoints that finalize annotations.
func (s *Server) annotatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).CanAnnotateLinks() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "annotation requires a higher authorization level"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *graph.User {
	return c.MustGet(userContextKey).(*graph.User)
}
