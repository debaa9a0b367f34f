package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/smallbiznis/formationdesk/internal/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadListDelete(t *testing.T) {
	ctx := context.Background()
	g := New("https://cdn.example.test")

	empty, err := g.ListArtifacts(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)

	res, err := g.UploadArtifact(ctx, "org-7", "WebGL.zip", strings.NewReader("payload"), blobstore.UploadMetadata{
		Name:           "Forklift",
		Version:        "2.0",
		OrganizationID: "7",
		ContentType:    "application/zip",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ID, res.InternalID+"/"))
	assert.Equal(t, "https://cdn.example.test/org-7/"+res.ID, res.URL)

	items, err := g.ListArtifacts(ctx, "org-7")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, res.InternalID, items[0].InternalID)
	assert.Equal(t, "Forklift", items[0].Name)
	assert.Equal(t, "7", items[0].OrganizationID())
	assert.Equal(t, int64(len("payload")), items[0].Size)

	containers, err := g.ListContainers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []blobstore.Container{{Name: "org-7"}}, containers)

	require.NoError(t, g.DeleteArtifact(ctx, "org-7", res.ID))
	assert.ErrorIs(t, g.DeleteArtifact(ctx, "org-7", res.ID), blobstore.ErrArtifactNotFound)
}

func TestUploadRejectsBadContainer(t *testing.T) {
	_, err := New("").UploadArtifact(context.Background(), "a:b", "x.zip", strings.NewReader(""), blobstore.UploadMetadata{})
	assert.ErrorIs(t, err, blobstore.ErrInvalidContainer)
}
