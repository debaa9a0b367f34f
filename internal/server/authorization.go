package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/formationdesk/internal/observability/context"
)

// authorizeOrgAction checks the caller's role in the organization named by :id.
func (s *Server) authorizeOrgAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromRequest(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		orgID := strings.TrimSpace(c.Param("id"))
		ctx := obscontext.WithOrgID(c.Request.Context(), orgID)
		c.Request = c.Request.WithContext(ctx)

		if err := s.authzSvc.Authorize(ctx, userID, orgID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
