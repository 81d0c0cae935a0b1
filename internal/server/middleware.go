package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
)

// requireUser extracts the identity-provider user from a Bearer token. Every
// refund-flow route sits behind this.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		uid, email, err := s.Auth.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUserID, uid)
		c.Set(ctxUserEmail, email)
		c.Next()
	}
}

func userID(c *gin.Context) string    { return c.GetString(ctxUserID) }
func userEmail(c *gin.Context) string { return c.GetString(ctxUserEmail) }
