package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/apperr"
	"github.com/smallbiznis/formationdesk/internal/blobstore"
	"github.com/smallbiznis/formationdesk/internal/blobstore/memory"
	"github.com/smallbiznis/formationdesk/internal/build/domain"
	"github.com/smallbiznis/formationdesk/internal/build/repository"
	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/config"
	formationdomain "github.com/smallbiznis/formationdesk/internal/formation/domain"
	organizationdomain "github.com/smallbiznis/formationdesk/internal/organization/domain"
	organizationrepository "github.com/smallbiznis/formationdesk/internal/organization/repository"
	"github.com/smallbiznis/formationdesk/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Service
	db      *gorm.DB
	gateway *memory.Gateway
	node    *snowflake.Node
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := storetest.Open(t)
	node := storetest.Node(t)
	gw := memory.New("https://cdn.example.test")

	svc := NewService(Params{
		DB:            conn,
		Log:           zaptest.NewLogger(t),
		GenID:         node,
		Clock:         clock.NewFakeClock(time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)),
		Repo:          repository.NewRepository(conn),
		Organizations: organizationrepository.NewRepository(conn),
		Gateway:       gw,
		Storage:       config.NewStaticStorageConventions(config.DefaultStorageConventions()),
	})
	return fixture{svc: svc.(*Service), db: conn, gateway: gw, node: node}
}

func (f fixture) formation(t *testing.T, portableID string, buildID domain.BuildID) formationdomain.Formation {
	t.Helper()
	now := time.Now().UTC()
	row := formationdomain.Formation{
		ID:          f.node.Generate(),
		FormationID: portableID,
		Name:        portableID,
		BuildID:     buildID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.db.Create(&row).Error)
	return row
}

func (f fixture) organization(t *testing.T, container string) organizationdomain.Organization {
	t.Helper()
	now := time.Now().UTC()
	org := organizationdomain.Organization{
		ID:               f.node.Generate(),
		Name:             "Acme",
		StorageContainer: container,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, f.db.Create(&org).Error)
	return org
}

func (f fixture) upload(t *testing.T, container, name, orgID string) *domain.BuildResponse {
	t.Helper()
	res, err := f.svc.UploadBuild(context.Background(), domain.UploadBuildRequest{
		Container:      container,
		FileName:       name + ".zip",
		Body:           strings.NewReader("webgl"),
		Name:           name,
		Version:        "1.0",
		OrganizationID: orgID,
	})
	require.NoError(t, err)
	return res
}

func TestUploadUsesDefaultContainer(t *testing.T) {
	f := newFixture(t)

	res := f.upload(t, "", "Forklift", "")
	assert.Equal(t, "unity-builds", res.Container)
	assert.Equal(t, "unity-builds:"+res.InternalID, res.BuildID)
	assert.Equal(t, res.InternalID+"/Forklift.zip", res.BlobName)
	assert.Equal(t, "application/zip", res.ContentType)

	_, err := f.svc.UploadBuild(context.Background(), domain.UploadBuildRequest{FileName: "x.zip"})
	assert.ErrorIs(t, err, domain.ErrInvalidUpload)
}

func TestListBuildsCountsUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	used := f.upload(t, "", "Used", "")
	unused := f.upload(t, "", "Unused", "")
	usedID, err := domain.ParseBuildID(used.BuildID)
	require.NoError(t, err)

	f.formation(t, "one", usedID)
	// Legacy reference without container still counts.
	f.formation(t, "two", domain.BuildID{InternalID: used.InternalID})

	org := f.organization(t, "")
	_, err = f.svc.AssociateTraining(ctx, org.ID.String(), f.formation(t, "three", domain.BuildID{}).ID.String(), used.BuildID)
	require.NoError(t, err)

	list, err := f.svc.ListBuilds(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list.Warnings)
	require.Len(t, list.Builds, 2)

	byID := map[string]domain.BuildResponse{}
	for _, b := range list.Builds {
		byID[b.InternalID] = b
	}
	assert.Equal(t, 2, byID[used.InternalID].FormationCount)
	assert.Equal(t, 1, byID[used.InternalID].OrganizationCount)
	assert.Equal(t, 0, byID[unused.InternalID].FormationCount)
	assert.Equal(t, 0, byID[unused.InternalID].OrganizationCount)
}

func TestListBuildsDegradesWhenCountsFail(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "", "Forklift", "")
	f.svc.repo = failingCounts{Repository: f.svc.repo}

	list, err := f.svc.ListBuilds(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list.Builds, 1)
	assert.Zero(t, list.Builds[0].FormationCount)
	require.Len(t, list.Warnings, 2)
	assert.Equal(t, "organization_usage", list.Warnings[0].Source)
	assert.Equal(t, "formation_usage", list.Warnings[1].Source)
}

type failingCounts struct {
	domain.Repository
}

func (failingCounts) CountFormationsByBuild(context.Context, []string) (map[string]int, error) {
	return nil, errors.New("db down")
}

func (failingCounts) CountOrganizationsByBuild(context.Context, []string) (map[string]int, error) {
	return nil, errors.New("db down")
}

type countingGateway struct {
	blobstore.Gateway
	lists map[string]int
	fail  map[string]bool
}

func (c *countingGateway) ListArtifacts(ctx context.Context, container string) ([]blobstore.Artifact, error) {
	c.lists[container]++
	if c.fail[container] {
		return nil, apperr.Upstream("blobstore_list_failed", errors.New("timeout"))
	}
	return c.Gateway.ListArtifacts(ctx, container)
}

func TestResolveFormationBuilds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.upload(t, "", "Alpha", "")
	b := f.upload(t, "", "Beta", "")
	c := f.upload(t, "org-7", "Gamma", "")

	gw := &countingGateway{Gateway: f.gateway, lists: map[string]int{}, fail: map[string]bool{"broken": true}}
	f.svc.gateway = gw

	res, err := f.svc.ResolveFormationBuilds(ctx, []string{
		a.BuildID,
		b.BuildID,
		b.InternalID, // legacy form of the same build
		c.BuildID,
		"unity-builds:01MISSING",
		"broken:01X",
		"bad:",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gw.lists["unity-builds"])
	assert.Equal(t, 1, gw.lists["org-7"])
	assert.Equal(t, 1, gw.lists["broken"])

	assert.Equal(t, "Alpha", res.Builds[a.BuildID].Name)
	assert.True(t, res.Builds[a.BuildID].Found)
	assert.Equal(t, "Beta", res.Builds[b.InternalID].Name)
	assert.Equal(t, b.BuildID, res.Builds[b.InternalID].BuildID)
	assert.Equal(t, "Gamma", res.Builds[c.BuildID].Name)

	missing := res.Builds["unity-builds:01MISSING"]
	assert.False(t, missing.Found)
	assert.Equal(t, domain.UnknownBuildName, missing.Name)
	assert.Equal(t, domain.UnknownBuildName, res.Builds["broken:01X"].Name)
	assert.Equal(t, domain.UnknownBuildName, res.Builds["bad:"].Name)

	sources := map[string]int{}
	for _, w := range res.Warnings {
		sources[w.Source]++
	}
	assert.Equal(t, map[string]int{"build": 1, "container:broken": 1, "build_id": 1}, sources)
}

func TestLinkFormationReplacesBuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.upload(t, "", "First", "")
	second := f.upload(t, "", "Second", "")
	formation := f.formation(t, "crane", domain.BuildID{})

	linked, err := f.svc.LinkFormation(ctx, formation.ID.String(), domain.LinkBuildRequest{
		BuildID: first.BuildID,
		Modules: []domain.BuildModuleInput{{Name: "Cabin", SceneObject: "Cabin_01"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "First", linked.Name)
	assert.Len(t, linked.Modules, 1)

	linked, err = f.svc.LinkFormation(ctx, formation.ID.String(), domain.LinkBuildRequest{
		BuildID: second.BuildID,
		Name:    "Second (patched)",
	})
	require.NoError(t, err)
	assert.Equal(t, "Second (patched)", linked.Name)

	var rows int64
	require.NoError(t, f.db.Model(&domain.Build3D{}).Where("formation_id = ?", formation.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
	var modules int64
	require.NoError(t, f.db.Model(&domain.BuildModule{}).Count(&modules).Error)
	assert.Zero(t, modules)

	var stored formationdomain.Formation
	require.NoError(t, f.db.First(&stored, "id = ?", formation.ID).Error)
	assert.Equal(t, second.BuildID, stored.BuildID.String())

	got, err := f.svc.GetFormationBuild(ctx, formation.ID.String())
	require.NoError(t, err)
	assert.Equal(t, second.InternalID, got.BuildID.InternalID)

	require.NoError(t, f.svc.UnlinkFormation(ctx, formation.ID.String()))
	require.NoError(t, f.db.First(&stored, "id = ?", formation.ID).Error)
	assert.True(t, stored.BuildID.IsZero())
	_, err = f.svc.GetFormationBuild(ctx, formation.ID.String())
	assert.ErrorIs(t, err, domain.ErrBuildNotFound)
}

func TestLinkFormationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	build := f.upload(t, "", "Build", "")
	formation := f.formation(t, "hoist", domain.BuildID{})

	_, err := f.svc.LinkFormation(ctx, formation.ID.String(), domain.LinkBuildRequest{BuildID: "unity-builds:nope"})
	assert.ErrorIs(t, err, domain.ErrBuildNotFound)
	_, err = f.svc.LinkFormation(ctx, formation.ID.String(), domain.LinkBuildRequest{BuildID: ":x"})
	assert.ErrorIs(t, err, domain.ErrInvalidBuildIDFormat)
	_, err = f.svc.LinkFormation(ctx, "12345", domain.LinkBuildRequest{BuildID: build.BuildID})
	assert.ErrorIs(t, err, domain.ErrFormationNotFound)
	assert.ErrorIs(t, f.svc.UnlinkFormation(ctx, "12345"), domain.ErrFormationNotFound)
}

func TestAssociateTrainingUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.organization(t, "")
	formation := f.formation(t, "ladder", domain.BuildID{})

	first, err := f.svc.AssociateTraining(ctx, org.ID.String(), formation.ID.String(), "org-x:01A")
	require.NoError(t, err)
	assert.True(t, first.IsCustomBuild)
	require.NotNil(t, first.BuildID)
	assert.Equal(t, "org-x:01A", *first.BuildID)

	second, err := f.svc.AssociateTraining(ctx, org.ID.String(), formation.ID.String(), "01LEGACY")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "unity-builds:01LEGACY", *second.BuildID)

	var rows int64
	require.NoError(t, f.db.Model(&organizationdomain.OrganizationTraining{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	cleared, err := f.svc.RemoveTrainingBuild(ctx, org.ID.String(), formation.ID.String())
	require.NoError(t, err)
	assert.Nil(t, cleared.BuildID)
	assert.False(t, cleared.IsCustomBuild)

	require.NoError(t, f.db.Model(&organizationdomain.OrganizationTraining{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	_, err = f.svc.RemoveTrainingBuild(ctx, org.ID.String(), "999")
	assert.ErrorIs(t, err, domain.ErrTrainingNotFound)
	_, err = f.svc.AssociateTraining(ctx, org.ID.String(), "999", "org-x:01A")
	assert.ErrorIs(t, err, domain.ErrFormationNotFound)
	_, err = f.svc.AssociateTraining(ctx, "999", formation.ID.String(), "org-x:01A")
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
}

func TestListOrganizationBuildsAttribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dedicated := f.organization(t, "")
	shared := f.organization(t, "unity-builds")
	ownContainer := "org-" + dedicated.ID.String()

	f.upload(t, "", "Tagged shared", shared.ID.String())
	f.upload(t, "unity-builds", "Someone else", "42")
	f.upload(t, "", "Untagged shared", "")
	mine := f.upload(t, "", "Mine", dedicated.ID.String())
	f.upload(t, ownContainer, "Untagged own", "")
	f.upload(t, ownContainer, "Foreign own", "42")

	assert.Equal(t, ownContainer, mine.Container)

	sharedList, err := f.svc.ListOrganizationBuilds(ctx, shared.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "unity-builds", sharedList.Container)
	require.Len(t, sharedList.Builds, 1)
	assert.Equal(t, "Tagged shared", sharedList.Builds[0].Name)

	ownList, err := f.svc.ListOrganizationBuilds(ctx, dedicated.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ownContainer, ownList.Container)
	names := []string{}
	for _, b := range ownList.Builds {
		names = append(names, b.Name)
	}
	assert.ElementsMatch(t, []string{"Mine", "Untagged own"}, names)
}

func TestDeleteBuildClearsReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	build := f.upload(t, "", "Doomed", "")
	formation := f.formation(t, "scaffold", domain.BuildID{})
	_, err := f.svc.LinkFormation(ctx, formation.ID.String(), domain.LinkBuildRequest{BuildID: build.BuildID})
	require.NoError(t, err)
	org := f.organization(t, "")
	_, err = f.svc.AssociateTraining(ctx, org.ID.String(), formation.ID.String(), build.BuildID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteBuild(ctx, build.Container, build.BlobName))

	var stored formationdomain.Formation
	require.NoError(t, f.db.First(&stored, "id = ?", formation.ID).Error)
	assert.True(t, stored.BuildID.IsZero())

	var builds int64
	require.NoError(t, f.db.Model(&domain.Build3D{}).Count(&builds).Error)
	assert.Zero(t, builds)

	var training organizationdomain.OrganizationTraining
	require.NoError(t, f.db.First(&training, "organization_id = ?", org.ID).Error)
	assert.True(t, training.BuildID.IsZero())
	assert.False(t, training.IsCustomBuild)

	err = f.svc.DeleteBuild(ctx, build.Container, build.BlobName)
	assert.ErrorIs(t, err, blobstore.ErrArtifactNotFound)
}
