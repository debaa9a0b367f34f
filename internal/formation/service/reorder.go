package service

import (
	"context"

	"github.com/smallbiznis/formationdesk/internal/formation/domain"
	"github.com/smallbiznis/formationdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReorderModule swaps the module with its neighbour in the given direction.
// The moving module is parked on the negative of its order first so the
// (formation_id, order_index) index never holds a duplicate.
func (s *Service) ReorderModule(ctx context.Context, formationID, moduleID string, direction domain.Direction) ([]domain.ModuleResponse, error) {
	if direction != domain.DirectionUp && direction != domain.DirectionDown {
		return nil, domain.ErrInvalidDirection
	}
	fid, err := parseID(formationID, domain.ErrInvalidFormation)
	if err != nil {
		return nil, err
	}
	mid, err := parseID(moduleID, domain.ErrInvalidModule)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.moduleInFormation(ctx, repo, fid, mid); err != nil {
			return err
		}

		siblings, err := repo.ListContents(ctx, fid)
		if err != nil {
			return err
		}

		current := -1
		for i, sibling := range siblings {
			if sibling.ID == mid {
				current = i
				break
			}
		}
		if current < 0 {
			return domain.ErrModuleNotFound
		}

		target := current - 1
		if direction == domain.DirectionDown {
			target = current + 1
		}
		if target < 0 || target >= len(siblings) {
			return domain.ErrBoundaryViolation
		}

		moving, neighbour := siblings[current], siblings[target]
		if err := repo.SetContentOrder(ctx, moving.ID, -moving.Order); err != nil {
			return err
		}
		if err := repo.SetContentOrder(ctx, neighbour.ID, moving.Order); err != nil {
			return err
		}
		return repo.SetContentOrder(ctx, moving.ID, neighbour.Order)
	})
	if err != nil {
		s.metrics.RecordModuleReorder(ctx, string(direction), "rejected")
		return nil, db.Classify(err, nil)
	}
	s.metrics.RecordModuleReorder(ctx, string(direction), "success")

	s.log.Debug("module reordered",
		zap.String("formation_id", fid.String()),
		zap.String("module_id", mid.String()),
		zap.String("direction", string(direction)),
	)
	return s.listModules(ctx, fid)
}
