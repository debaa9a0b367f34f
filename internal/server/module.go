package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	formationdomain "github.com/smallbiznis/formationdesk/internal/formation/domain"
)

type reorderModuleRequest struct {
	Direction formationdomain.Direction `json:"direction"`
}

func (s *Server) ListModules(c *gin.Context) {
	items, err := s.formationSvc.ListModules(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateModule(c *gin.Context) {
	var req formationdomain.ModuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.formationSvc.CreateModule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetModule(c *gin.Context) {
	resp, err := s.formationSvc.GetModule(c.Request.Context(), c.Param("id"), c.Param("moduleId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateModule(c *gin.Context) {
	var req formationdomain.UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.formationSvc.UpdateModule(c.Request.Context(), c.Param("id"), c.Param("moduleId"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteModule(c *gin.Context) {
	if err := s.formationSvc.DeleteModule(c.Request.Context(), c.Param("id"), c.Param("moduleId")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReorderModule answers with every module of the formation in its new order.
func (s *Server) ReorderModule(c *gin.Context) {
	var req reorderModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := s.formationSvc.ReorderModule(c.Request.Context(), c.Param("id"), c.Param("moduleId"), req.Direction)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}
