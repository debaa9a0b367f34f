package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlobNaming(t *testing.T) {
	id := NewInternalID()
	name := BlobName(id, "/WebGL.zip")

	assert.Equal(t, id+"/WebGL.zip", name)
	assert.Equal(t, id, InternalIDFromBlobName(name))
	assert.Equal(t, "WebGL.zip", FileNameFromBlobName(name))
	assert.Equal(t, "legacy.zip", InternalIDFromBlobName("legacy.zip"))
}

func TestArtifactFromMetadata(t *testing.T) {
	a := ArtifactFromMetadata("01HZ/build.zip", map[string]string{
		"Name":           "Forklift",
		"Version":        "1.2.0",
		"Organizationid": "42",
	})

	assert.Equal(t, "01HZ", a.InternalID)
	assert.Equal(t, "Forklift", a.Name)
	assert.Equal(t, "1.2.0", a.Version)
	assert.Equal(t, "42", a.OrganizationID())

	bare := ArtifactFromMetadata("01HZ/build.zip", nil)
	assert.Equal(t, "build.zip", bare.Name)
}

func TestValidateContainer(t *testing.T) {
	assert.NoError(t, ValidateContainer("org-1"))
	assert.ErrorIs(t, ValidateContainer(""), ErrInvalidContainer)
	assert.ErrorIs(t, ValidateContainer("a:b"), ErrInvalidContainer)
}

func TestUploadMetadataMap(t *testing.T) {
	m := UploadMetadata{Name: "Forklift", OrganizationID: "7"}.Map("01HZ")
	assert.Equal(t, map[string]string{
		MetaInternalID:     "01HZ",
		MetaName:           "Forklift",
		MetaOrganizationID: "7",
	}, m)
}
