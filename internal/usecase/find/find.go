package find

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/usecase/moderation"
	"github.com/ignatzorin/finders-backend/internal/usecase/token"
	"github.com/sirupsen/logrus"
)

// BoostTokenCost - стоимость продвижения заявки на BoostDuration.
const BoostTokenCost int64 = 50

// Settings - настройки, которые читаются при каждой операции.
type Settings interface {
	HighBudgetThreshold(ctx context.Context) (valueobject.Money, error)
	HighBudgetTokenCost(ctx context.Context) (int64, error)
	ProposalTokenCost(ctx context.Context) (int64, error)
}

type Escalation interface {
	EscalationLevel(ctx context.Context, userID uuid.UUID) (int, error)
}

type Tokens interface {
	Require(ctx context.Context, holder token.Holder, userID uuid.UUID, required int64) error
	Deduct(ctx context.Context, m token.Movement) (int64, error)
}

type CreateFindInput struct {
	ClientID    uuid.UUID
	Title       string
	Description string
	BudgetMin   valueobject.Money
	BudgetMax   valueobject.Money
	Boost       bool
}

type SubmitProposalInput struct {
	FindID      uuid.UUID
	FinderID    uuid.UUID
	Price       valueobject.Money
	CoverLetter string
}

// Service - публикация заявок и откликов с проверкой баланса токенов.
type Service struct {
	tx         repository.TxManager
	finds      repository.FindRepository
	proposals  repository.ProposalRepository
	tokens     Tokens
	settings   Settings
	escalation Escalation
}

func NewService(tx repository.TxManager, finds repository.FindRepository, proposals repository.ProposalRepository, tokens Tokens, settings Settings, escalation Escalation) *Service {
	return &Service{tx: tx, finds: finds, proposals: proposals, tokens: tokens, settings: settings, escalation: escalation}
}

func restricted(level int, action string) error {
	return apperror.New(apperror.ErrCodeForbidden, "действие недоступно из-за нарушений: "+action).
		WithDetails(map[string]any{"escalationLevel": level})
}

// CreateFind публикует заявку. Крупный бюджет и продвижение стоят токенов;
// если их не хватает, заявка не создаётся.
func (s *Service) CreateFind(ctx context.Context, input CreateFindInput) (*entity.Find, error) {
	f, err := entity.NewFind(input.ClientID, input.Title, input.Description, input.BudgetMin, input.BudgetMax)
	if err != nil {
		return nil, err
	}

	threshold, err := s.settings.HighBudgetThreshold(ctx)
	if err != nil {
		return nil, err
	}
	highBudget := f.BudgetMax >= threshold

	level, err := s.escalation.EscalationLevel(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}
	switch {
	case level >= moderation.LevelSuspended:
		return nil, restricted(level, "публикация заявок")
	case level >= moderation.LevelRestricted && input.Boost:
		return nil, restricted(level, "продвижение заявок")
	case level >= moderation.LevelRestricted && highBudget:
		return nil, restricted(level, "публикация заявок с крупным бюджетом")
	}

	var highCost int64
	if highBudget {
		if highCost, err = s.settings.HighBudgetTokenCost(ctx); err != nil {
			return nil, err
		}
	}
	var boostCost int64
	if input.Boost {
		boostCost = BoostTokenCost
	}
	if err := s.tokens.Require(ctx, token.HolderClient, input.ClientID, highCost+boostCost); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if input.Boost {
		f.Boost(now)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.finds.Create(ctx, f); err != nil {
			return err
		}
		if highCost > 0 {
			if _, err := s.tokens.Deduct(ctx, token.Movement{
				Holder:      token.HolderClient,
				UserID:      input.ClientID,
				Amount:      highCost,
				Description: fmt.Sprintf("Публикация заявки с крупным бюджетом: %s", f.Title),
				Reference:   "find:" + f.ID.String(),
			}); err != nil {
				return err
			}
		}
		if boostCost > 0 {
			if _, err := s.tokens.Deduct(ctx, token.Movement{
				Holder:      token.HolderClient,
				UserID:      input.ClientID,
				Amount:      boostCost,
				Description: fmt.Sprintf("Продвижение заявки: %s", f.Title),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("find").WithFields(logrus.Fields{
		"find_id": f.ID, "client_id": f.ClientID, "high_budget": highBudget, "boosted": input.Boost,
		"tokens_spent": highCost + boostCost,
	}).Info("заявка опубликована")
	return f, nil
}

// BoostFind продвигает заявку ещё на BoostDuration за BoostTokenCost токенов.
func (s *Service) BoostFind(ctx context.Context, findID, clientID uuid.UUID) (*entity.Find, error) {
	level, err := s.escalation.EscalationLevel(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if level >= moderation.LevelRestricted {
		return nil, restricted(level, "продвижение заявок")
	}

	if err := s.tokens.Require(ctx, token.HolderClient, clientID, BoostTokenCost); err != nil {
		return nil, err
	}

	var boosted *entity.Find
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		f, err := s.finds.FindByIDForUpdate(ctx, findID)
		if err != nil {
			return err
		}
		if !f.IsOwnedBy(clientID) {
			return apperror.New(apperror.ErrCodeForbidden, "продвигать можно только свою заявку")
		}
		if !f.IsOpen() {
			return apperror.New(apperror.ErrCodeBadRequest, "продвигать можно только открытую заявку")
		}
		f.Boost(time.Now().UTC())
		if err := s.finds.Update(ctx, f); err != nil {
			return err
		}
		if _, err := s.tokens.Deduct(ctx, token.Movement{
			Holder:      token.HolderClient,
			UserID:      clientID,
			Amount:      BoostTokenCost,
			Description: fmt.Sprintf("Продвижение заявки: %s", f.Title),
		}); err != nil {
			return err
		}
		boosted = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("find").WithFields(logrus.Fields{
		"find_id": boosted.ID, "boosted_until": boosted.BoostedUntil,
	}).Info("заявка продвинута")
	return boosted, nil
}

func (s *Service) GetFind(ctx context.Context, id uuid.UUID) (*entity.Find, error) {
	return s.finds.FindByID(ctx, id)
}

// SubmitProposal отправляет отклик исполнителя; списывает proposal_token_cost токенов.
func (s *Service) SubmitProposal(ctx context.Context, input SubmitProposalInput) (*entity.Proposal, error) {
	level, err := s.escalation.EscalationLevel(ctx, input.FinderID)
	if err != nil {
		return nil, err
	}
	if level >= moderation.LevelSuspended {
		return nil, restricted(level, "отклики на заявки")
	}

	f, err := s.finds.FindByID(ctx, input.FindID)
	if err != nil {
		return nil, err
	}
	if f.IsOwnedBy(input.FinderID) {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя откликнуться на собственную заявку")
	}
	if !f.IsOpen() {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "заявка больше не принимает предложения")
	}

	existing, err := s.proposals.FindByFindAndFinder(ctx, input.FindID, input.FinderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на эту заявку")
	}

	p, err := entity.NewProposal(input.FindID, input.FinderID, input.Price, input.CoverLetter)
	if err != nil {
		return nil, err
	}

	cost, err := s.settings.ProposalTokenCost(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Require(ctx, token.HolderFinder, input.FinderID, cost); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.proposals.Create(ctx, p); err != nil {
			return err
		}
		if cost == 0 {
			return nil
		}
		_, err := s.tokens.Deduct(ctx, token.Movement{
			Holder:      token.HolderFinder,
			UserID:      input.FinderID,
			Amount:      cost,
			Description: fmt.Sprintf("Отклик на заявку: %s", f.Title),
			Reference:   "proposal:" + p.ID.String(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("find").WithFields(logrus.Fields{
		"proposal_id": p.ID, "find_id": p.FindID, "finder_id": p.FinderID, "price": p.Price.String(),
	}).Info("отправлен отклик")
	return p, nil
}
