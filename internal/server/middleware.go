package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obsmiddleware "github.com/smallbiznis/formationdesk/internal/observability/logger"
)

// RequireUser rejects requests the gateway did not attach a user to.
func (s *Server) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := userIDFromRequest(c); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func userIDFromRequest(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetHeader(obsmiddleware.HeaderUserID))
	return userID, userID != ""
}
