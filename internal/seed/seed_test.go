package seed

import (
	"testing"
	"time"

	"github.com/smallbiznis/formationdesk/internal/clock"
	"github.com/smallbiznis/formationdesk/internal/config"
	organizationdomain "github.com/smallbiznis/formationdesk/internal/organization/domain"
	"github.com/smallbiznis/formationdesk/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func params(t *testing.T, cfg config.Config) Params {
	return Params{
		DB:     storetest.Open(t),
		Config: cfg,
		Log:    zaptest.NewLogger(t),
		GenID:  storetest.Node(t),
		Clock:  clock.NewFakeClock(time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)),
	}
}

func TestEnsureMainOrganization(t *testing.T) {
	p := params(t, config.Config{BootstrapOwnerID: "olivia"})

	require.NoError(t, EnsureMainOrganization(p))
	require.NoError(t, EnsureMainOrganization(p))

	var orgs []organizationdomain.Organization
	require.NoError(t, p.DB.Find(&orgs).Error)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Main", orgs[0].Name)
	assert.True(t, orgs[0].IsActive)

	var members []organizationdomain.OrganizationMember
	require.NoError(t, p.DB.Find(&members).Error)
	require.Len(t, members, 1)
	assert.Equal(t, "olivia", members[0].UserID)
	assert.Equal(t, organizationdomain.RoleOwner, members[0].Role)
	assert.Equal(t, orgs[0].ID, members[0].OrgID)
}

func TestEnsureMainOrganizationWithoutOwner(t *testing.T) {
	p := params(t, config.Config{})
	require.NoError(t, EnsureMainOrganization(p))

	var count int64
	require.NoError(t, p.DB.Model(&organizationdomain.Organization{}).Count(&count).Error)
	assert.Zero(t, count)
}
