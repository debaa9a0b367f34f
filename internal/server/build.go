package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	builddomain "github.com/smallbiznis/formationdesk/internal/build/domain"
)

// uploadFormField names the multipart part holding the build archive.
const uploadFormField = "file"

func (s *Server) ListBuilds(c *gin.Context) {
	resp, err := s.buildSvc.ListBuilds(c.Request.Context(), c.Query("container"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeBuildList(c, resp)
}

func (s *Server) ListContainers(c *gin.Context) {
	items, err := s.buildSvc.ListContainers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) UploadBuild(c *gin.Context) {
	header, err := c.FormFile(uploadFormField)
	if err != nil {
		AbortWithError(c, newValidationError(uploadFormField, "invalid_upload", "a build file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	resp, err := s.buildSvc.UploadBuild(c.Request.Context(), builddomain.UploadBuildRequest{
		Container:      c.PostForm("container"),
		FileName:       header.Filename,
		Body:           file,
		Name:           strings.TrimSpace(c.PostForm("name")),
		Version:        strings.TrimSpace(c.PostForm("version")),
		Description:    strings.TrimSpace(c.PostForm("description")),
		OrganizationID: c.PostForm("organizationId"),
		ContentType:    header.Header.Get("Content-Type"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) DeleteBuild(c *gin.Context) {
	blobName := strings.TrimPrefix(c.Param("blobName"), "/")
	if err := s.buildSvc.DeleteBuild(c.Request.Context(), c.Param("container"), blobName); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetFormationBuild(c *gin.Context) {
	resp, err := s.buildSvc.GetFormationBuild(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) LinkFormationBuild(c *gin.Context) {
	var req builddomain.LinkBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.buildSvc.LinkFormation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UnlinkFormationBuild(c *gin.Context) {
	if err := s.buildSvc.UnlinkFormation(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeBuildList(c *gin.Context, resp *builddomain.ListBuildsResponse) {
	body := gin.H{"data": resp.Builds, "container": resp.Container}
	if len(resp.Warnings) > 0 {
		body["warnings"] = resp.Warnings
	}
	c.JSON(http.StatusOK, body)
}
