package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	"github.com/smallbiznis/formationdesk/internal/blobstore"
	"github.com/smallbiznis/formationdesk/internal/build/domain"
	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/config"
	"github.com/smallbiznis/formationdesk/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/formationdesk/internal/organization/domain"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	Organizations organizationdomain.Repository
	Gateway       blobstore.Gateway
	Storage       *config.StorageConventionsHolder
	Audit         auditdomain.Service `optional:"true"`
	Metrics       *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	orgs    organizationdomain.Repository
	gateway blobstore.Gateway
	storage *config.StorageConventionsHolder
	audit   auditdomain.Service
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("build.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		orgs:    p.Organizations,
		gateway: p.Gateway,
		storage: p.Storage,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

func (s *Service) ListContainers(ctx context.Context) ([]blobstore.Container, error) {
	return s.gateway.ListContainers(ctx)
}

// ListBuilds lists a container and counts the formations and organizations
// using each build. Counting failures are reported as warnings.
func (s *Service) ListBuilds(ctx context.Context, container string) (*domain.ListBuildsResponse, error) {
	container = strings.TrimSpace(container)
	if container == "" {
		container = s.storage.Get().DefaultContainer
	}

	artifacts, err := s.gateway.ListArtifacts(ctx, container)
	if err != nil {
		return nil, err
	}

	builds := make([]domain.BuildResponse, 0, len(artifacts))
	for _, a := range artifacts {
		builds = append(builds, domain.ToBuildResponse(container, a))
	}

	warnings := s.enrich(ctx, container, builds)
	return &domain.ListBuildsResponse{Container: container, Builds: builds, Warnings: warnings}, nil
}

func (s *Service) enrich(ctx context.Context, container string, builds []domain.BuildResponse) []domain.Warning {
	if len(builds) == 0 {
		return nil
	}

	stored := make([]string, 0, len(builds)*2)
	for _, b := range builds {
		stored = append(stored, s.storedForms(container, b.InternalID)...)
	}

	orgCounts := s.countOrganizations(ctx, stored)
	formationCounts := s.countFormations(ctx, stored)

	for i := range builds {
		for _, key := range s.storedForms(container, builds[i].InternalID) {
			builds[i].OrganizationCount += orgCounts.Value[key]
			builds[i].FormationCount += formationCounts.Value[key]
		}
	}

	var warnings []domain.Warning
	warnings = domain.Collect(warnings, orgCounts)
	warnings = domain.Collect(warnings, formationCounts)
	return warnings
}

func (s *Service) countOrganizations(ctx context.Context, stored []string) domain.Result[map[string]int] {
	counts, err := s.repo.CountOrganizationsByBuild(ctx, stored)
	if err != nil {
		s.log.Warn("organization usage lookup failed", zap.Error(err))
		s.metrics.RecordEnrichmentWarning(ctx, "organization_usage")
		return domain.Degraded(map[string]int{}, "organization_usage", err)
	}
	return domain.OK(counts)
}

func (s *Service) countFormations(ctx context.Context, stored []string) domain.Result[map[string]int] {
	counts, err := s.repo.CountFormationsByBuild(ctx, stored)
	if err != nil {
		s.log.Warn("formation usage lookup failed", zap.Error(err))
		s.metrics.RecordEnrichmentWarning(ctx, "formation_usage")
		return domain.Degraded(map[string]int{}, "formation_usage", err)
	}
	return domain.OK(counts)
}

// storedForms lists every way a reference to the build may be stored. Builds
// in the legacy container may still be referenced by their bare internal id.
func (s *Service) storedForms(container, internalID string) []string {
	forms := []string{domain.BuildID{Container: container, InternalID: internalID}.String()}
	if container == s.storage.Get().LegacyContainer {
		forms = append(forms, internalID)
	}
	return forms
}

func (s *Service) UploadBuild(ctx context.Context, req domain.UploadBuildRequest) (*domain.BuildResponse, error) {
	fileName := strings.TrimSpace(req.FileName)
	if req.Body == nil || fileName == "" {
		return nil, domain.ErrInvalidUpload
	}

	conventions := s.storage.Get()
	container := strings.TrimSpace(req.Container)
	orgID := strings.TrimSpace(req.OrganizationID)
	if container == "" && orgID != "" {
		org, err := s.mustOrganization(ctx, orgID)
		if err != nil {
			return nil, err
		}
		container = organizationdomain.ContainerName(*org, conventions.OrganizationPrefix)
	}
	if container == "" {
		container = conventions.DefaultContainer
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fileName
	}
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = conventions.DefaultContentType
	}

	res, err := s.gateway.UploadArtifact(ctx, container, fileName, req.Body, blobstore.UploadMetadata{
		Name:           name,
		Version:        req.Version,
		Description:    req.Description,
		OrganizationID: orgID,
		ContentType:    contentType,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBuildLink(ctx, "artifact", "upload")
	s.log.Info("build uploaded",
		zap.String("container", container),
		zap.String("blob", res.ID),
	)

	return &domain.BuildResponse{
		BuildID:        domain.BuildID{Container: container, InternalID: res.InternalID}.String(),
		BlobName:       res.ID,
		Container:      container,
		InternalID:     res.InternalID,
		Name:           name,
		Version:        req.Version,
		Description:    req.Description,
		ContentType:    contentType,
		URL:            res.URL,
		LastModified:   s.clock.Now(),
		OrganizationID: orgID,
	}, nil
}

// DeleteBuild removes the artifact, then every reference to it.
func (s *Service) DeleteBuild(ctx context.Context, container, blobName string) error {
	container = strings.TrimSpace(container)
	blobName = strings.TrimSpace(blobName)
	if blobName == "" {
		return blobstore.ErrInvalidFileName
	}

	if err := s.gateway.DeleteArtifact(ctx, container, blobName); err != nil {
		return err
	}

	stored := s.storedForms(container, blobstore.InternalIDFromBlobName(blobName))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ClearBuildReferences(ctx, stored)
	})
	if err != nil {
		return db.Classify(err, nil)
	}

	s.metrics.RecordBuildLink(ctx, "artifact", "delete")
	s.log.Info("build deleted",
		zap.String("container", container),
		zap.String("blob", blobName),
	)
	return nil
}

func (s *Service) mustOrganization(ctx context.Context, rawID string) (*organizationdomain.Organization, error) {
	id, err := parseID(rawID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.GetOrganization(ctx, id)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return org, nil
}

// record is best effort.
func (s *Service) record(ctx context.Context, entry auditdomain.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("audit record failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
