package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/formationdesk/internal/blobstore"
	"github.com/smallbiznis/formationdesk/internal/build/domain"
	"go.uber.org/zap"
)

// containerListing memoizes ListArtifacts for the duration of one call.
type containerListing struct {
	gateway blobstore.Gateway
	seen    map[string]domain.Result[map[string]blobstore.Artifact]
}

func newContainerListing(gateway blobstore.Gateway) *containerListing {
	return &containerListing{
		gateway: gateway,
		seen:    map[string]domain.Result[map[string]blobstore.Artifact]{},
	}
}

// get returns the container's artifacts keyed by internal id, and whether this
// call performed the listing.
func (c *containerListing) get(ctx context.Context, container string) (domain.Result[map[string]blobstore.Artifact], bool) {
	if r, ok := c.seen[container]; ok {
		return r, false
	}

	var r domain.Result[map[string]blobstore.Artifact]
	artifacts, err := c.gateway.ListArtifacts(ctx, container)
	if err != nil {
		r = domain.Degraded(map[string]blobstore.Artifact{}, "container:"+container, err)
	} else {
		byID := make(map[string]blobstore.Artifact, len(artifacts))
		for _, a := range artifacts {
			byID[a.InternalID] = a
		}
		r = domain.OK(byID)
	}
	c.seen[container] = r
	return r, true
}

// ResolveFormationBuilds looks up the artifact behind each build id. Every
// container is listed once. Ids that cannot be found resolve to a placeholder
// and add a warning.
func (s *Service) ResolveFormationBuilds(ctx context.Context, buildIDs []string) (*domain.ResolveResult, error) {
	result := &domain.ResolveResult{Builds: make(map[string]domain.ResolvedBuild, len(buildIDs))}
	listing := newContainerListing(s.gateway)
	legacy := s.storage.Get().LegacyContainer

	for _, raw := range buildIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, done := result.Builds[raw]; done {
			continue
		}

		id, err := domain.ResolveBuildID(raw, legacy)
		if err != nil {
			result.Builds[raw] = domain.ResolvedBuild{BuildID: raw, Name: domain.UnknownBuildName}
			result.Warnings = append(result.Warnings, domain.Warning{
				Source:  "build_id",
				Message: fmt.Sprintf("build id %q is malformed", raw),
			})
			continue
		}

		artifacts, first := listing.get(ctx, id.Container)
		if first && artifacts.Warning != nil {
			s.log.Warn("container listing failed", zap.String("container", id.Container), zap.String("reason", artifacts.Warning.Message))
			s.metrics.RecordEnrichmentWarning(ctx, "container_listing")
			result.Warnings = append(result.Warnings, *artifacts.Warning)
		}

		resolved := domain.ResolvedBuild{
			BuildID:    id.String(),
			Container:  id.Container,
			InternalID: id.InternalID,
			Name:       domain.UnknownBuildName,
		}
		if a, ok := artifacts.Value[id.InternalID]; ok {
			resolved.Name = a.Name
			resolved.Version = a.Version
			resolved.URL = a.URL
			resolved.Found = true
		} else if artifacts.Warning == nil {
			result.Warnings = append(result.Warnings, domain.Warning{
				Source:  "build",
				Message: fmt.Sprintf("build %s not found", id.String()),
			})
		}
		result.Builds[raw] = resolved
	}

	return result, nil
}

// findArtifact looks a single build up in its container.
func (s *Service) findArtifact(ctx context.Context, id domain.BuildID) (*blobstore.Artifact, error) {
	artifacts, err := s.gateway.ListArtifacts(ctx, id.Container)
	if err != nil {
		return nil, err
	}
	for _, a := range artifacts {
		if a.InternalID == id.InternalID {
			return &a, nil
		}
	}
	return nil, domain.ErrBuildNotFound
}
