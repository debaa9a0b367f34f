package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	"github.com/smallbiznis/formationdesk/internal/organization/domain"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"gorm.io/gorm"
)

func (s *Service) ListMembers(ctx context.Context, orgID string) ([]domain.MemberResponse, error) {
	id, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mustOrganization(ctx, s.repo, id); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	resp := make([]domain.MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, toMemberResponse(m))
	}
	return resp, nil
}

func (s *Service) AddMember(ctx context.Context, orgID string, req domain.AddMemberRequest) (*domain.MemberResponse, error) {
	id, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.mustOrganization(ctx, s.repo, id); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetMember(ctx, id, userID)
	if err != nil {
		return nil, db.Classify(err, nil)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateMember
	}

	now := s.clock.Now()
	member := domain.OrganizationMember{
		ID:        s.genID.Generate(),
		OrgID:     id,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.AddMember(ctx, &member); err != nil {
		return nil, db.Classify(err, domain.ErrDuplicateMember)
	}

	s.record(ctx, auditdomain.Entry{
		OrgID:      &id,
		Action:     auditdomain.ActionMemberAdded,
		TargetType: "member",
		TargetID:   userID,
		Metadata:   map[string]any{"role": role},
	})

	resp := toMemberResponse(member)
	return &resp, nil
}

// UpdateMemberRole refuses to demote the last OWNER.
func (s *Service) UpdateMemberRole(ctx context.Context, orgID, userID, role string) (*domain.MemberResponse, error) {
	id, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	var updated domain.OrganizationMember
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		member, err := repo.GetMember(ctx, id, userID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrMemberNotFound
		}

		if member.Role == domain.RoleOwner && role != domain.RoleOwner {
			if err := ensureAnotherOwner(ctx, repo, id); err != nil {
				return err
			}
		}

		member.Role = role
		member.UpdatedAt = s.clock.Now()
		if err := repo.UpdateMemberRole(ctx, member); err != nil {
			return err
		}
		updated = *member
		return nil
	})
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	s.record(ctx, auditdomain.Entry{
		OrgID:      &id,
		Action:     auditdomain.ActionMemberRoleChanged,
		TargetType: "member",
		TargetID:   userID,
		Metadata:   map[string]any{"role": role},
	})

	resp := toMemberResponse(updated)
	return &resp, nil
}

// RemoveMember refuses to remove the last OWNER and leaves the row in place.
func (s *Service) RemoveMember(ctx context.Context, orgID, userID string) error {
	id, err := parseOrgID(orgID)
	if err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUser
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		member, err := repo.GetMember(ctx, id, userID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrMemberNotFound
		}

		if member.Role == domain.RoleOwner {
			if err := ensureAnotherOwner(ctx, repo, id); err != nil {
				return err
			}
		}
		return repo.DeleteMember(ctx, id, userID)
	})
	if err != nil {
		return db.Classify(err, nil)
	}

	s.record(ctx, auditdomain.Entry{
		OrgID:      &id,
		Action:     auditdomain.ActionMemberRemoved,
		TargetType: "member",
		TargetID:   userID,
	})
	return nil
}

func ensureAnotherOwner(ctx context.Context, repo domain.Repository, orgID snowflake.ID) error {
	owners, err := repo.CountOwners(ctx, orgID)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return domain.ErrLastOwner
	}
	return nil
}

func toMemberResponse(m domain.OrganizationMember) domain.MemberResponse {
	return domain.MemberResponse{
		ID:        m.ID.String(),
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}
