package domain

import (
	"context"
	"io"
	"time"

	"github.com/smallbiznis/formationdesk/internal/blobstore"
)

// UnknownBuildName labels a referenced build whose artifact no longer exists.
const UnknownBuildName = "unknown build"

type Service interface {
	ListContainers(ctx context.Context) ([]blobstore.Container, error)
	ListBuilds(ctx context.Context, container string) (*ListBuildsResponse, error)
	UploadBuild(ctx context.Context, req UploadBuildRequest) (*BuildResponse, error)
	DeleteBuild(ctx context.Context, container, blobName string) error
	ResolveFormationBuilds(ctx context.Context, buildIDs []string) (*ResolveResult, error)

	GetFormationBuild(ctx context.Context, formationID string) (*FormationBuildResponse, error)
	LinkFormation(ctx context.Context, formationID string, req LinkBuildRequest) (*FormationBuildResponse, error)
	UnlinkFormation(ctx context.Context, formationID string) error

	ListOrganizationBuilds(ctx context.Context, orgID string) (*ListBuildsResponse, error)
	AssociateTraining(ctx context.Context, orgID, formationID, buildID string) (*TrainingBuildResponse, error)
	RemoveTrainingBuild(ctx context.Context, orgID, formationID string) (*TrainingBuildResponse, error)
}

type UploadBuildRequest struct {
	Container      string
	FileName       string
	Body           io.Reader
	Name           string
	Version        string
	Description    string
	OrganizationID string
	ContentType    string
}

type BuildModuleInput struct {
	Name        string `json:"name"`
	SceneObject string `json:"sceneObject"`
}

// LinkBuildRequest fields other than BuildID override what the artifact metadata says.
type LinkBuildRequest struct {
	BuildID       string             `json:"buildId"`
	Name          string             `json:"name"`
	Version       string             `json:"version"`
	Description   string             `json:"description"`
	ObjectMapping map[string]any     `json:"objectMapping"`
	Modules       []BuildModuleInput `json:"modules"`
}

type BuildResponse struct {
	BuildID           string    `json:"buildId"`
	BlobName          string    `json:"blobName"`
	Container         string    `json:"container"`
	InternalID        string    `json:"internalId"`
	Name              string    `json:"name"`
	Version           string    `json:"version"`
	Description       string    `json:"description"`
	ContentType       string    `json:"contentType,omitempty"`
	URL               string    `json:"url"`
	Size              int64     `json:"size"`
	LastModified      time.Time `json:"lastModified"`
	OrganizationID    string    `json:"organizationId,omitempty"`
	OrganizationCount int       `json:"organizationCount"`
	FormationCount    int       `json:"formationCount"`
}

type ListBuildsResponse struct {
	Container string          `json:"container"`
	Builds    []BuildResponse `json:"builds"`
	Warnings  []Warning       `json:"warnings,omitempty"`
}

type ResolvedBuild struct {
	BuildID    string `json:"buildId"`
	Container  string `json:"container"`
	InternalID string `json:"internalId"`
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	URL        string `json:"url,omitempty"`
	Found      bool   `json:"found"`
}

// ResolveResult is keyed by the build id as the caller passed it.
type ResolveResult struct {
	Builds   map[string]ResolvedBuild `json:"builds"`
	Warnings []Warning                `json:"warnings,omitempty"`
}

type TrainingBuildResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	FormationID    string    `json:"formationId"`
	BuildID        *string   `json:"buildId"`
	IsCustomBuild  bool      `json:"isCustomBuild"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type FormationBuildResponse struct {
	Build3D
	Modules []BuildModule `json:"modules"`
}

// ToBuildResponse renders an artifact of container.
func ToBuildResponse(container string, a blobstore.Artifact) BuildResponse {
	return BuildResponse{
		BuildID:        BuildID{Container: container, InternalID: a.InternalID}.String(),
		BlobName:       a.ID,
		Container:      container,
		InternalID:     a.InternalID,
		Name:           a.Name,
		Version:        a.Version,
		Description:    a.Description,
		ContentType:    a.ContentType,
		URL:            a.URL,
		Size:           a.Size,
		LastModified:   a.LastModified,
		OrganizationID: a.OrganizationID(),
	}
}
