// Package memory keeps artifacts in process memory for local runs and tests.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/formationdesk/internal/blobstore"
)

type object struct {
	data         []byte
	contentType  string
	metadata     map[string]string
	lastModified time.Time
}

type Gateway struct {
	mu         sync.RWMutex
	containers map[string]map[string]object
	baseURL    string
	now        func() time.Time
}

func New(baseURL string) *Gateway {
	return &Gateway{
		containers: make(map[string]map[string]object),
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (g *Gateway) ListArtifacts(ctx context.Context, container string) ([]blobstore.Artifact, error) {
	if err := blobstore.ValidateContainer(container); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	objects := g.containers[container]
	out := make([]blobstore.Artifact, 0, len(objects))
	for name, obj := range objects {
		a := blobstore.ArtifactFromMetadata(name, obj.metadata)
		a.ContentType = obj.contentType
		a.Size = int64(len(obj.data))
		a.LastModified = obj.lastModified
		a.URL = g.url(container, name)
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *Gateway) UploadArtifact(ctx context.Context, container, fileName string, body io.Reader, meta blobstore.UploadMetadata) (*blobstore.UploadResult, error) {
	if err := blobstore.ValidateContainer(container); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, blobstore.ErrInvalidFileName
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, err
	}

	internalID := blobstore.NewInternalID()
	name := blobstore.BlobName(internalID, fileName)
	sum := md5.Sum(buf.Bytes())

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.containers[container] == nil {
		g.containers[container] = make(map[string]object)
	}
	g.containers[container][name] = object{
		data:         buf.Bytes(),
		contentType:  meta.ContentType,
		metadata:     meta.Map(internalID),
		lastModified: g.now(),
	}

	return &blobstore.UploadResult{
		ID:         name,
		InternalID: internalID,
		URL:        g.url(container, name),
		ETag:       hex.EncodeToString(sum[:]),
	}, nil
}

func (g *Gateway) DeleteArtifact(ctx context.Context, container, blobName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	objects := g.containers[container]
	if _, ok := objects[blobName]; !ok {
		return blobstore.ErrArtifactNotFound
	}
	delete(objects, blobName)
	return nil
}

func (g *Gateway) ListContainers(ctx context.Context) ([]blobstore.Container, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]blobstore.Container, 0, len(g.containers))
	for name := range g.containers {
		out = append(out, blobstore.Container{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Put stores a blob under an explicit name, for seeding legacy layouts.
func (g *Gateway) Put(container, blobName string, data []byte, metadata map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.containers[container] == nil {
		g.containers[container] = make(map[string]object)
	}
	g.containers[container][blobName] = object{data: data, metadata: metadata, lastModified: g.now()}
}

func (g *Gateway) url(container, name string) string {
	if g.baseURL == "" {
		return "memory://" + container + "/" + name
	}
	return g.baseURL + "/" + container + "/" + name
}

var _ blobstore.Gateway = (*Gateway)(nil)
