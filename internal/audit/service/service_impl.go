package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	"github.com/smallbiznis/formationdesk/internal/clock"
	obscontext "github.com/smallbiznis/formationdesk/internal/observability/context"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"github.com/smallbiznis/formationdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	log := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		OrgID:      entry.OrgID,
		ActorID:    obscontext.ActorIDFromContext(ctx),
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(entry.TargetID),
		Metadata:   datatypes.JSONMap(payload),
		RequestID:  obscontext.RequestIDFromContext(ctx),
		CreatedAt:  s.clock.Now(),
	}
	if log.ActorID == "" {
		log.ActorID = "system"
	}

	if err := s.repo.Insert(ctx, s.db, &log); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, orgID string, req auditdomain.ListAuditLogRequest) (*auditdomain.ListAuditLogResponse, error) {
	parsedOrgID, err := snowflake.ParseString(strings.TrimSpace(orgID))
	if err != nil || parsedOrgID == 0 {
		return nil, auditdomain.ErrInvalidOrganization
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return nil, auditdomain.ErrInvalidPageToken
	}
	var beforeID snowflake.ID
	if cursor != nil {
		beforeID, err = snowflake.ParseString(cursor.ID)
		if err != nil || beforeID == 0 {
			return nil, auditdomain.ErrInvalidPageToken
		}
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		OrgID:    parsedOrgID,
		Action:   req.Action,
		BeforeID: beforeID,
		Limit:    limit,
	})
	if err != nil {
		return nil, db.Classify(err, nil)
	}

	items, pageInfo := pagination.Trim(items, limit, func(item auditdomain.AuditLog) string {
		return item.ID.String()
	})
	if items == nil {
		items = []auditdomain.AuditLog{}
	}

	return &auditdomain.ListAuditLogResponse{AuditLogs: items, PageInfo: pageInfo}, nil
}
