// Package provider selects the blob store backend from configuration.
package provider

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/formationdesk/internal/blobstore"
	"github.com/smallbiznis/formationdesk/internal/blobstore/memory"
	"github.com/smallbiznis/formationdesk/internal/blobstore/rediscache"
	"github.com/smallbiznis/formationdesk/internal/blobstore/s3"
	"github.com/smallbiznis/formationdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Redis  *redis.Client `optional:"true"`
}

func NewGateway(p Params) (blobstore.Gateway, error) {
	var gw blobstore.Gateway
	switch p.Config.Storage.Backend {
	case "memory":
		gw = memory.New(p.Config.Storage.PublicBaseURL)
	case "s3", "":
		s3gw, err := s3.New(context.Background(), s3.Config{
			Region:          p.Config.Storage.Region,
			Endpoint:        p.Config.Storage.Endpoint,
			AccessKeyID:     p.Config.Storage.AccessKeyID,
			SecretAccessKey: p.Config.Storage.SecretAccessKey,
			UsePathStyle:    p.Config.Storage.UsePathStyle,
			PublicBaseURL:   p.Config.Storage.PublicBaseURL,
		}, p.Log)
		if err != nil {
			return nil, err
		}
		gw = s3gw
	default:
		return nil, fmt.Errorf("unknown storage backend %q", p.Config.Storage.Backend)
	}

	p.Log.Info("blob store ready", zap.String("backend", p.Config.Storage.Backend))
	if p.Redis != nil {
		return rediscache.New(gw, p.Redis, p.Config.Redis.ArtifactTTL, p.Log), nil
	}
	return gw, nil
}

var Module = fx.Module("blobstore",
	fx.Provide(NewGateway),
)
