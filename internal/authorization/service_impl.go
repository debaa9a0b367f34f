package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID, orgID, object, action string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID <= 0 {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role, err := s.roleForUser(ctx, parsedOrgID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		s.auditDenied(ctx, parsedOrgID, userID, object, action, "not_a_member")
		return ErrForbidden
	}

	subject := "user:" + userID
	domain := fmt.Sprintf("org:%s", parsedOrgID.String())
	if err := s.ensureGrouping(subject, "role:"+strings.ToLower(role), domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, parsedOrgID, userID, object, action, "role:"+strings.ToLower(role))
		return ErrForbidden
	}
	return nil
}

// roleForUser returns "" when the user is not a member.
func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID string) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE organization_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}
	return strings.TrimSpace(row.Role), nil
}

// ensureGrouping keeps exactly one role per subject and domain, following
// role changes made through the organization service.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			s.log.Warn("stale role grouping not removed", zap.String("subject", subject), zap.Error(err))
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, orgID snowflake.ID, userID, object, action, reason string) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		OrgID:      &orgID,
		Action:     auditdomain.ActionAuthorizationDeny,
		TargetType: "authorization",
		TargetID:   object + "." + action,
		Metadata: map[string]any{
			"object":  object,
			"action":  action,
			"subject": "user:" + userID,
			"reason":  reason,
		},
	})
	if err != nil {
		s.log.Warn("audit record failed", zap.String("action", auditdomain.ActionAuthorizationDeny), zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Members read.
		{"role:member", ObjectOrganization, ActionView},
		{"role:member", ObjectMember, ActionView},
		{"role:member", ObjectTraining, ActionView},
		{"role:member", ObjectBuild, ActionView},

		{"role:admin", ObjectOrganization, ActionView},
		{"role:admin", ObjectOrganization, ActionManage},
		{"role:admin", ObjectMember, ActionView},
		{"role:admin", ObjectMember, ActionManage},
		{"role:admin", ObjectTraining, ActionView},
		{"role:admin", ObjectTraining, ActionManage},
		{"role:admin", ObjectBuild, ActionView},
		{"role:admin", ObjectBuild, ActionManage},
		{"role:admin", ObjectAuditLog, ActionView},

		{"role:owner", ObjectOrganization, ActionView},
		{"role:owner", ObjectOrganization, ActionManage},
		{"role:owner", ObjectOrganization, ActionDelete},
		{"role:owner", ObjectMember, ActionView},
		{"role:owner", ObjectMember, ActionManage},
		{"role:owner", ObjectTraining, ActionView},
		{"role:owner", ObjectTraining, ActionManage},
		{"role:owner", ObjectBuild, ActionView},
		{"role:owner", ObjectBuild, ActionManage},
		{"role:owner", ObjectAuditLog, ActionView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
