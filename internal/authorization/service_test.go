package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	auditrepository "github.com/smallbiznis/formationdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/formationdesk/internal/audit/service"
	"github.com/smallbiznis/formationdesk/internal/clock"
	organizationdomain "github.com/smallbiznis/formationdesk/internal/organization/domain"
	"github.com/smallbiznis/formationdesk/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	svc   Service
	audit auditdomain.Service
	db    *gorm.DB
	node  *snowflake.Node
	org   snowflake.ID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := storetest.Open(t)
	node := storetest.Node(t)
	log := zaptest.NewLogger(t)

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	audit := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)),
		Repo:  auditrepository.Provide(),
	})

	now := time.Now().UTC()
	org := organizationdomain.Organization{ID: node.Generate(), Name: "Acme", IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, conn.Create(&org).Error)

	f := fixture{
		svc:   NewService(Params{DB: conn, Log: log, Enforcer: enforcer, AuditSvc: audit}),
		audit: audit,
		db:    conn,
		node:  node,
		org:   org.ID,
	}
	f.member(t, "olivia", organizationdomain.RoleOwner)
	f.member(t, "adam", organizationdomain.RoleAdmin)
	f.member(t, "mia", organizationdomain.RoleMember)
	return f
}

func (f fixture) member(t *testing.T, userID, role string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&organizationdomain.OrganizationMember{
		ID:        f.node.Generate(),
		OrgID:     f.org,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func TestAuthorizeByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.org.String()

	cases := []struct {
		user    string
		object  string
		action  string
		allowed bool
	}{
		{"olivia", ObjectOrganization, ActionDelete, true},
		{"adam", ObjectOrganization, ActionDelete, false},
		{"adam", ObjectMember, ActionManage, true},
		{"adam", ObjectAuditLog, ActionView, true},
		{"mia", ObjectMember, ActionView, true},
		{"mia", ObjectMember, ActionManage, false},
		{"mia", ObjectTraining, ActionManage, false},
		{"mia", ObjectBuild, ActionView, true},
		{"stranger", ObjectMember, ActionView, false},
	}
	for _, tc := range cases {
		t.Run(tc.user+"/"+tc.object+"."+tc.action, func(t *testing.T) {
			err := f.svc.Authorize(ctx, tc.user, org, tc.object, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.org.String()

	require.ErrorIs(t, f.svc.Authorize(ctx, "mia", org, ObjectTraining, ActionManage), ErrForbidden)

	require.NoError(t, f.db.Model(&organizationdomain.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ?", f.org, "mia").
		Update("role", organizationdomain.RoleAdmin).Error)
	assert.NoError(t, f.svc.Authorize(ctx, "mia", org, ObjectTraining, ActionManage))

	require.NoError(t, f.db.Model(&organizationdomain.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ?", f.org, "mia").
		Update("role", organizationdomain.RoleMember).Error)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "mia", org, ObjectTraining, ActionManage), ErrForbidden)
}

func TestAuthorizeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Authorize(ctx, "", f.org.String(), ObjectMember, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "olivia", "acme", ObjectMember, ActionView), ErrInvalidOrganization)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "olivia", f.org.String(), "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "olivia", f.org.String(), ObjectMember, " "), ErrInvalidAction)
}

func TestDeniedDecisionsAreAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.Authorize(ctx, "mia", f.org.String(), ObjectMember, ActionManage), ErrForbidden)
	require.NoError(t, f.svc.Authorize(ctx, "olivia", f.org.String(), ObjectMember, ActionManage))

	logs, err := f.audit.List(ctx, f.org.String(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, logs.AuditLogs, 1)
	entry := logs.AuditLogs[0]
	assert.Equal(t, auditdomain.ActionAuthorizationDeny, entry.Action)
	assert.Equal(t, "member.manage", entry.TargetID)
	assert.Equal(t, "user:mia", entry.Metadata["subject"])
	assert.Equal(t, "role:member", entry.Metadata["reason"])
}
