package finder

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/sirupsen/logrus"
)

// LevelCalculator пересчитывает уровень исполнителя по заработку, числу работ и рейтингу.
type LevelCalculator struct {
	finders repository.FinderRepository
	levels  repository.LevelRepository
}

func NewLevelCalculator(finders repository.FinderRepository, levels repository.LevelRepository) *LevelCalculator {
	return &LevelCalculator{finders: finders, levels: levels}
}

// Recompute выбирает старший уровень, пороги которого выполнены, и сохраняет его при изменении.
// Возвращает выбранный уровень или nil, если не подходит ни один.
func (c *LevelCalculator) Recompute(ctx context.Context, finderID uuid.UUID) (*entity.FinderLevel, error) {
	f, err := c.finders.FindByID(ctx, finderID)
	if err != nil {
		return nil, err
	}
	levels, err := c.levels.List(ctx)
	if err != nil {
		return nil, err
	}

	best := Select(levels, f)
	var next *uuid.UUID
	if best != nil {
		next = &best.ID
	}
	if sameLevel(f.CurrentLevelID, next) {
		return best, nil
	}

	if err := c.finders.SetLevel(ctx, finderID, next); err != nil {
		return nil, err
	}
	fields := logrus.Fields{"finder_id": finderID}
	if best != nil {
		fields["level"] = best.Name
	}
	logger.WithComponent("finder-level").WithFields(fields).Info("уровень исполнителя изменён")
	return best, nil
}

// Select возвращает уровень с наибольшим rank среди выполненных.
func Select(levels []*entity.FinderLevel, f *entity.Finder) *entity.FinderLevel {
	var best *entity.FinderLevel
	for _, l := range levels {
		if !l.QualifiedBy(f) {
			continue
		}
		if best == nil || l.Rank > best.Rank {
			best = l
		}
	}
	return best
}

func sameLevel(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
