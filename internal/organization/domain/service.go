package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/formationdesk/internal/apperr"
)

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// ValidRole reports whether role is one of OWNER, ADMIN, MEMBER.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

var (
	ErrInvalidOrganization  = apperr.InvalidInput("invalid_organization", "organization id is invalid")
	ErrOrganizationNotFound = apperr.NotFound("organization_not_found", "organization not found")
	ErrInvalidName          = apperr.InvalidInput("invalid_name", "name is required")
	ErrInvalidContainer     = apperr.InvalidInput("invalid_storage_container", "storage container must not contain ':'")
	ErrInvalidUser          = apperr.InvalidInput("invalid_user", "user id is required")
	ErrInvalidRole          = apperr.InvalidInput("invalid_role", "role must be OWNER, ADMIN or MEMBER")
	ErrDuplicateMember      = apperr.Conflict("duplicate_member", "user is already a member of the organization")
	ErrMemberNotFound       = apperr.NotFound("member_not_found", "member not found")
	ErrLastOwner            = apperr.InvalidInput("last_owner", "cannot remove last owner")
	ErrInvalidFormation     = apperr.InvalidInput("invalid_formation", "formation id is invalid")
	ErrFormationNotFound    = apperr.NotFound("formation_not_found", "formation not found")
	ErrDuplicateTraining    = apperr.Conflict("duplicate_training", "formation is already assigned to the organization")
	ErrTrainingNotFound     = apperr.NotFound("training_not_found", "training not found")
)

type Service interface {
	Create(ctx context.Context, actorID string, req CreateOrganizationRequest) (*OrganizationResponse, error)
	Get(ctx context.Context, id string) (*OrganizationResponse, error)
	List(ctx context.Context, req ListOrganizationsRequest) ([]OrganizationResponse, error)
	ListByUser(ctx context.Context, userID string) ([]OrganizationListResponseItem, error)
	Update(ctx context.Context, id string, req UpdateOrganizationRequest) (*OrganizationResponse, error)
	Deactivate(ctx context.Context, id string) error

	ListMembers(ctx context.Context, orgID string) ([]MemberResponse, error)
	AddMember(ctx context.Context, orgID string, req AddMemberRequest) (*MemberResponse, error)
	UpdateMemberRole(ctx context.Context, orgID, userID, role string) (*MemberResponse, error)
	RemoveMember(ctx context.Context, orgID, userID string) error

	ListTrainings(ctx context.Context, orgID string) ([]TrainingResponse, error)
	AddTraining(ctx context.Context, orgID, formationID string) (*TrainingResponse, error)
	RemoveTraining(ctx context.Context, orgID, formationID string) error
}

type CreateOrganizationRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	StorageContainer string `json:"storageContainer"`
}

type UpdateOrganizationRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	StorageContainer *string `json:"storageContainer"`
	IsActive         *bool   `json:"isActive"`
}

type ListOrganizationsRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

type AddMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type OrganizationResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	StorageContainer string    `json:"storageContainer,omitempty"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type MemberResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type TrainingResponse struct {
	ID            string    `json:"id"`
	FormationID   string    `json:"formationId"`
	BuildID       *string   `json:"buildId"`
	IsCustomBuild bool      `json:"isCustomBuild"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ContainerName is the blob container holding the organization's builds.
func ContainerName(org Organization, prefix string) string {
	if c := strings.TrimSpace(org.StorageContainer); c != "" {
		return c
	}
	return fmt.Sprintf("%s%s", prefix, org.ID.String())
}

func ToTrainingResponse(t OrganizationTraining) TrainingResponse {
	resp := TrainingResponse{
		ID:            t.ID.String(),
		FormationID:   t.FormationID.String(),
		IsCustomBuild: t.IsCustomBuild,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if !t.BuildID.IsZero() {
		id := t.BuildID.String()
		resp.BuildID = &id
	}
	return resp
}
