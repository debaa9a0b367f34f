// Package blobstore is the gateway to the store holding Unity WebGL build
// artifacts. Artifacts are grouped by container and named <internalId>/<fileName>.
package blobstore

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/formationdesk/internal/apperr"
)

// Metadata keys attached to every uploaded artifact.
const (
	MetaName           = "name"
	MetaVersion        = "version"
	MetaDescription    = "description"
	MetaInternalID     = "internalid"
	MetaOrganizationID = "organizationid"
)

var (
	ErrArtifactNotFound = apperr.NotFound("artifact_not_found", "build artifact not found")
	ErrInvalidContainer = apperr.InvalidInput("invalid_container", "container name is required and must not contain ':'")
	ErrInvalidFileName  = apperr.InvalidInput("invalid_file_name", "file name is required")
)

type Artifact struct {
	ID           string            `json:"id"`
	InternalID   string            `json:"internalId"`
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	ContentType  string            `json:"contentType"`
	URL          string            `json:"url"`
	LastModified time.Time         `json:"lastModified"`
	Size         int64             `json:"size"`
	Metadata     map[string]string `json:"metadata"`
}

// OrganizationID returns the organizationid metadata, if any.
func (a Artifact) OrganizationID() string {
	return strings.TrimSpace(a.Metadata[MetaOrganizationID])
}

type UploadMetadata struct {
	Name           string
	Version        string
	Description    string
	OrganizationID string
	ContentType    string
}

// Map renders the metadata stored next to the blob.
func (m UploadMetadata) Map(internalID string) map[string]string {
	out := map[string]string{
		MetaInternalID: internalID,
		MetaName:       m.Name,
	}
	if m.Version != "" {
		out[MetaVersion] = m.Version
	}
	if m.Description != "" {
		out[MetaDescription] = m.Description
	}
	if m.OrganizationID != "" {
		out[MetaOrganizationID] = m.OrganizationID
	}
	return out
}

type UploadResult struct {
	ID         string `json:"id"`
	InternalID string `json:"internalId"`
	URL        string `json:"url"`
	ETag       string `json:"etag"`
}

type Container struct {
	Name string `json:"name"`
}

type Gateway interface {
	// ListArtifacts returns an empty list for a container that does not exist.
	ListArtifacts(ctx context.Context, container string) ([]Artifact, error)
	// UploadArtifact creates the container when missing.
	UploadArtifact(ctx context.Context, container, fileName string, body io.Reader, meta UploadMetadata) (*UploadResult, error)
	DeleteArtifact(ctx context.Context, container, blobName string) error
	ListContainers(ctx context.Context) ([]Container, error)
}

// NewInternalID mints the id that prefixes a new blob name.
func NewInternalID() string {
	return ulid.Make().String()
}

func BlobName(internalID, fileName string) string {
	return internalID + "/" + strings.TrimLeft(fileName, "/")
}

// InternalIDFromBlobName reads the id prefix of a blob name. Names without a
// prefix are their own id.
func InternalIDFromBlobName(blobName string) string {
	if id, _, ok := strings.Cut(blobName, "/"); ok && id != "" {
		return id
	}
	return blobName
}

// FileNameFromBlobName strips the id prefix.
func FileNameFromBlobName(blobName string) string {
	if _, name, ok := strings.Cut(blobName, "/"); ok {
		return name
	}
	return blobName
}

// ValidateContainer rejects names that would break container:internalId addressing.
func ValidateContainer(container string) error {
	container = strings.TrimSpace(container)
	if container == "" || strings.Contains(container, ":") {
		return ErrInvalidContainer
	}
	return nil
}

// ArtifactFromMetadata fills the descriptive fields from blob metadata.
// Keys are matched case-insensitively since some stores canonicalize them.
func ArtifactFromMetadata(blobName string, metadata map[string]string) Artifact {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[strings.ToLower(k)] = v
	}

	internalID := meta[MetaInternalID]
	if internalID == "" {
		internalID = InternalIDFromBlobName(blobName)
	}
	name := meta[MetaName]
	if name == "" {
		name = FileNameFromBlobName(blobName)
	}

	return Artifact{
		ID:          blobName,
		InternalID:  internalID,
		Name:        name,
		Version:     meta[MetaVersion],
		Description: meta[MetaDescription],
		Metadata:    meta,
	}
}
