package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/formationdesk/internal/formation/transfer"
)

func (s *Server) ExportFormation(c *gin.Context) {
	doc, err := s.transcoder.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	name := slug.Make(doc.Formation.ID)
	if name == "" {
		name = "formation"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, name))
	c.JSON(http.StatusOK, doc)
}

// ImportFormation takes the raw document as the body. ?formationId= overrides
// the portable id it carries.
func (s *Server) ImportFormation(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := transfer.Decode(raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transcoder.Import(c.Request.Context(), *doc, transfer.ImportOptions{
		FormationID: strings.TrimSpace(c.Query("formationId")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
