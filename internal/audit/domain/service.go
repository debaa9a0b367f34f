package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formationdesk/internal/apperr"
	"github.com/smallbiznis/formationdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	ActionMemberAdded        = "organization.member_added"
	ActionMemberRoleChanged  = "organization.member_role_changed"
	ActionMemberRemoved      = "organization.member_removed"
	ActionOrganizationClosed = "organization.deactivated"
	ActionTrainingBuildSet   = "training.build_associated"
	ActionTrainingBuildReset = "training.build_removed"
	ActionAuthorizationDeny  = "authorization.denied"
)

var (
	ErrInvalidOrganization = apperr.InvalidInput("invalid_organization", "organization id is invalid")
	ErrInvalidPageToken    = apperr.InvalidInput("invalid_page_token", "page token is invalid")
	ErrInvalidAction       = apperr.InvalidInput("invalid_action", "audit action is required")
)

// Entry is what callers hand to Record. Actor and request id come from the context.
type Entry struct {
	OrgID      *snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action string `form:"action"`
}

type ListAuditLogResponse struct {
	AuditLogs []AuditLog          `json:"auditLogs"`
	PageInfo  pagination.PageInfo `json:"pageInfo"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, orgID string, req ListAuditLogRequest) (*ListAuditLogResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type ListFilter struct {
	OrgID    snowflake.ID
	Action   string
	BeforeID snowflake.ID
	Limit    int
}
