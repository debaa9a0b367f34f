// Package authorization decides which organization members may manage
// members, trainings and builds. Roles come from organization_members and are
// granted per org:<id> domain.
package authorization

import (
	"context"

	"github.com/smallbiznis/formationdesk/internal/apperr"
)

const (
	ObjectOrganization = "organization"
	ObjectMember       = "member"
	ObjectTraining     = "training"
	ObjectBuild        = "build"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionView   = "view"
	ActionManage = "manage"
	ActionDelete = "delete"
)

var (
	ErrInvalidActor        = apperr.InvalidInput("invalid_actor", "X-User-Id header is required")
	ErrInvalidOrganization = apperr.InvalidInput("invalid_organization", "organization id is invalid")
	ErrInvalidObject       = apperr.InvalidInput("invalid_object", "authorization object is required")
	ErrInvalidAction       = apperr.InvalidInput("invalid_authorization_action", "authorization action is required")
	ErrForbidden           = apperr.Forbidden("forbidden", "not allowed to perform this action in the organization")
)

type Service interface {
	// Authorize returns nil when userID may perform action on object in orgID.
	Authorize(ctx context.Context, userID, orgID, object, action string) error
}
