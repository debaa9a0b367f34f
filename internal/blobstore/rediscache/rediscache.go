// Package rediscache caches artifact listings in redis. Uploads and deletes
// drop the cached listing of their container.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/formationdesk/internal/blobstore"
	"go.uber.org/zap"
)

const (
	keyArtifacts = "formationdesk:artifacts:"
	defaultTTL   = 30 * time.Second
)

// KV is the part of *redis.Client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Gateway struct {
	next blobstore.Gateway
	kv   KV
	ttl  time.Duration
	log  *zap.Logger
}

func New(next blobstore.Gateway, kv KV, ttl time.Duration, log *zap.Logger) *Gateway {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{next: next, kv: kv, ttl: ttl, log: log.Named("blobstore.cache")}
}

// ListArtifacts serves from cache when possible. Redis failures fall through
// to the wrapped gateway.
func (g *Gateway) ListArtifacts(ctx context.Context, container string) ([]blobstore.Artifact, error) {
	if err := blobstore.ValidateContainer(container); err != nil {
		return nil, err
	}

	key := keyArtifacts + container
	raw, err := g.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []blobstore.Artifact
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		g.log.Warn("discarding unreadable cache entry", zap.String("container", container))
	case !errors.Is(err, redis.Nil):
		g.log.Warn("artifact cache read failed", zap.String("container", container), zap.Error(err))
	}

	artifacts, err := g.next.ListArtifacts(ctx, container)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(artifacts); err == nil {
		if err := g.kv.Set(ctx, key, payload, g.ttl).Err(); err != nil {
			g.log.Warn("artifact cache write failed", zap.String("container", container), zap.Error(err))
		}
	}
	return artifacts, nil
}

func (g *Gateway) UploadArtifact(ctx context.Context, container, fileName string, body io.Reader, meta blobstore.UploadMetadata) (*blobstore.UploadResult, error) {
	res, err := g.next.UploadArtifact(ctx, container, fileName, body, meta)
	if err != nil {
		return nil, err
	}
	g.invalidate(ctx, container)
	return res, nil
}

func (g *Gateway) DeleteArtifact(ctx context.Context, container, blobName string) error {
	if err := g.next.DeleteArtifact(ctx, container, blobName); err != nil {
		return err
	}
	g.invalidate(ctx, container)
	return nil
}

func (g *Gateway) ListContainers(ctx context.Context) ([]blobstore.Container, error) {
	return g.next.ListContainers(ctx)
}

func (g *Gateway) invalidate(ctx context.Context, container string) {
	if err := g.kv.Del(ctx, keyArtifacts+container).Err(); err != nil {
		g.log.Warn("artifact cache invalidation failed", zap.String("container", container), zap.Error(err))
	}
}

var _ blobstore.Gateway = (*Gateway)(nil)
