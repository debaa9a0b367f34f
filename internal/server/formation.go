package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	builddomain "github.com/smallbiznis/formationdesk/internal/build/domain"
	formationdomain "github.com/smallbiznis/formationdesk/internal/formation/domain"
	"github.com/smallbiznis/formationdesk/pkg/db/pagination"
)

type formationView struct {
	formationdomain.FormationResponse
	Build *builddomain.ResolvedBuild `json:"build"`
}

func (s *Server) ListFormations(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.formationSvc.ListFormations(c.Request.Context(), formationdomain.ListFormationsRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views, warnings, err := s.withBuilds(c, resp.Formations)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{"data": views, "page_info": resp.PageInfo}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) CreateFormation(c *gin.Context) {
	var req formationdomain.CreateFormationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.formationSvc.CreateFormation(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetFormation(c *gin.Context) {
	resp, err := s.formationSvc.GetFormation(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views, warnings, err := s.withBuilds(c, []formationdomain.FormationResponse{*resp})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{"data": views[0]}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) UpdateFormation(c *gin.Context) {
	var req formationdomain.UpdateFormationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.formationSvc.UpdateFormation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFormation(c *gin.Context) {
	if err := s.formationSvc.DeleteFormation(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// withBuilds attaches the resolved build of each formation. Lookup problems
// come back as warnings.
func (s *Server) withBuilds(c *gin.Context, formations []formationdomain.FormationResponse) ([]formationView, []builddomain.Warning, error) {
	ids := make([]string, 0, len(formations))
	for _, f := range formations {
		if f.BuildID != nil {
			ids = append(ids, *f.BuildID)
		}
	}

	views := make([]formationView, 0, len(formations))
	if len(ids) == 0 {
		for _, f := range formations {
			views = append(views, formationView{FormationResponse: f})
		}
		return views, nil, nil
	}

	resolved, err := s.buildSvc.ResolveFormationBuilds(c.Request.Context(), ids)
	if err != nil {
		return nil, nil, err
	}

	for _, f := range formations {
		view := formationView{FormationResponse: f}
		if f.BuildID != nil {
			if b, ok := resolved.Builds[*f.BuildID]; ok {
				view.Build = &b
			}
		}
		views = append(views, view)
	}
	return views, resolved.Warnings, nil
}
