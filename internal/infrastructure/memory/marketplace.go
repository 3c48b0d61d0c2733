package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

type FindRepository struct{ s *Store }

func (r *FindRepository) Create(ctx context.Context, f *entity.Find) error {
	return r.s.write(ctx, func(d *state) error {
		d.finds[f.ID] = *f
		return nil
	})
}

func (r *FindRepository) Update(ctx context.Context, f *entity.Find) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.finds[f.ID]; !ok {
			return apperror.ErrFindNotFound
		}
		d.finds[f.ID] = *f
		return nil
	})
}

func (r *FindRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Find, error) {
	var (
		f  entity.Find
		ok bool
	)
	r.s.read(ctx, func(d *state) { f, ok = d.finds[id] })
	if !ok {
		return nil, apperror.ErrFindNotFound
	}
	return &f, nil
}

// FindByIDForUpdate: блокировка обеспечивается сериализацией транзакций Store.
func (r *FindRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Find, error) {
	return r.FindByID(ctx, id)
}

type ProposalRepository struct{ s *Store }

func (r *ProposalRepository) Create(ctx context.Context, p *entity.Proposal) error {
	return r.s.write(ctx, func(d *state) error {
		for _, existing := range d.proposals {
			if existing.FindID == p.FindID && existing.FinderID == p.FinderID {
				return apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на эту заявку")
			}
		}
		d.proposals[p.ID] = *p
		return nil
	})
}

func (r *ProposalRepository) Update(ctx context.Context, p *entity.Proposal) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.proposals[p.ID]; !ok {
			return apperror.ErrProposalNotFound
		}
		if p.Status == valueobject.ProposalStatusAccepted {
			for id, other := range d.proposals {
				if id != p.ID && other.FindID == p.FindID && other.Status == valueobject.ProposalStatusAccepted {
					return apperror.ErrAlreadyAccepted
				}
			}
		}
		d.proposals[p.ID] = *p
		return nil
	})
}

func (r *ProposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	var (
		p  entity.Proposal
		ok bool
	)
	r.s.read(ctx, func(d *state) { p, ok = d.proposals[id] })
	if !ok {
		return nil, apperror.ErrProposalNotFound
	}
	return &p, nil
}

func (r *ProposalRepository) FindByFindAndFinder(ctx context.Context, findID, finderID uuid.UUID) (*entity.Proposal, error) {
	var found *entity.Proposal
	r.s.read(ctx, func(d *state) {
		for _, p := range d.proposals {
			if p.FindID == findID && p.FinderID == finderID {
				cp := p
				found = &cp
				return
			}
		}
	})
	return found, nil
}

func (r *ProposalRepository) HasAccepted(ctx context.Context, findID uuid.UUID) (bool, error) {
	var has bool
	r.s.read(ctx, func(d *state) {
		for _, p := range d.proposals {
			if p.FindID == findID && p.Status == valueobject.ProposalStatusAccepted {
				has = true
				return
			}
		}
	})
	return has, nil
}

type ContractRepository struct{ s *Store }

func (r *ContractRepository) Create(ctx context.Context, c *entity.Contract) error {
	return r.s.write(ctx, func(d *state) error {
		for _, existing := range d.contracts {
			if existing.ProposalID == c.ProposalID {
				return apperror.ErrAlreadyAccepted
			}
		}
		d.contracts[c.ID] = *c
		return nil
	})
}

func (r *ContractRepository) Update(ctx context.Context, c *entity.Contract, expected valueobject.EscrowStatus) error {
	return r.s.write(ctx, func(d *state) error {
		current, ok := d.contracts[c.ID]
		if !ok {
			return apperror.ErrContractNotFound
		}
		if current.EscrowStatus != expected {
			return apperror.New(apperror.ErrCodeConflict, "статус контракта изменился, повторите операцию")
		}
		d.contracts[c.ID] = *c
		return nil
	})
}

func (r *ContractRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	var (
		c  entity.Contract
		ok bool
	)
	r.s.read(ctx, func(d *state) { c, ok = d.contracts[id] })
	if !ok {
		return nil, apperror.ErrContractNotFound
	}
	return &c, nil
}

func (r *ContractRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.FindByID(ctx, id)
}

func (r *ContractRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*entity.Contract, error) {
	result := make([]*entity.Contract, 0)
	r.s.read(ctx, func(d *state) {
		for _, c := range d.contracts {
			if c.IsParticipant(userID) {
				cp := c
				result = append(result, &cp)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *ContractRepository) ListCompletedAwaitingRelease(ctx context.Context, before time.Time, after repository.Cursor, limit int) ([]*entity.Contract, error) {
	result := make([]*entity.Contract, 0)
	r.s.read(ctx, func(d *state) {
		for _, c := range d.contracts {
			if c.IsCompleted && c.IsFunded() && c.CompletedAt != nil && !c.CompletedAt.After(before) && after.After(*c.CompletedAt, c.ID) {
				cp := c
				result = append(result, &cp)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		return repository.Cursor{At: *result[i].CompletedAt, ID: result[i].ID}.After(*result[j].CompletedAt, result[j].ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type SubmissionRepository struct{ s *Store }

func (r *SubmissionRepository) Upsert(ctx context.Context, sub *entity.OrderSubmission) error {
	return r.s.write(ctx, func(d *state) error {
		cp := *sub
		cp.AttachmentPaths = append([]string(nil), sub.AttachmentPaths...)
		d.submissions[sub.ContractID] = cp
		return nil
	})
}

func (r *SubmissionRepository) FindByContractID(ctx context.Context, contractID uuid.UUID) (*entity.OrderSubmission, error) {
	var (
		sub entity.OrderSubmission
		ok  bool
	)
	r.s.read(ctx, func(d *state) { sub, ok = d.submissions[contractID] })
	if !ok {
		return nil, apperror.ErrSubmissionNotFound
	}
	sub.AttachmentPaths = append([]string(nil), sub.AttachmentPaths...)
	return &sub, nil
}

func (r *SubmissionRepository) ListDueForAutoRelease(ctx context.Context, now time.Time, after repository.Cursor, limit int) ([]*entity.OrderSubmission, error) {
	result := make([]*entity.OrderSubmission, 0)
	r.s.read(ctx, func(d *state) {
		for contractID, sub := range d.submissions {
			c, ok := d.contracts[contractID]
			if !ok || !c.IsFunded() || !sub.IsDue(now) || !after.After(sub.AutoReleaseAt, contractID) {
				continue
			}
			cp := sub
			result = append(result, &cp)
		}
	})
	sort.Slice(result, func(i, j int) bool {
		return repository.Cursor{At: result[i].AutoReleaseAt, ID: result[i].ContractID}.After(result[j].AutoReleaseAt, result[j].ContractID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
