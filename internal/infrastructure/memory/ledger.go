package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

type LedgerRepository struct{ s *Store }

func (r *LedgerRepository) InsertTransaction(ctx context.Context, t *entity.Transaction) error {
	return r.s.write(ctx, func(d *state) error {
		if t.Reference != nil {
			for _, existing := range d.transactions {
				if existing.Type == t.Type && existing.Reference != nil && *existing.Reference == *t.Reference {
					return apperror.ErrDuplicateReference
				}
			}
		}
		d.transactions = append(d.transactions, *t)
		return nil
	})
}

func (r *LedgerRepository) ExistsByReference(ctx context.Context, txType valueobject.TransactionType, reference string) (bool, error) {
	var exists bool
	r.s.read(ctx, func(d *state) {
		for _, t := range d.transactions {
			if t.Type == txType && t.Reference != nil && *t.Reference == reference {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, userID uuid.UUID, asset valueobject.Asset, limit, offset int) ([]*entity.Transaction, error) {
	all := make([]*entity.Transaction, 0)
	r.s.read(ctx, func(d *state) {
		for i := len(d.transactions) - 1; i >= 0; i-- {
			t := d.transactions[i]
			if t.UserID == userID && t.Asset == asset {
				all = append(all, &t)
			}
		}
	})
	if offset >= len(all) {
		return []*entity.Transaction{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *LedgerRepository) SumTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	r.s.read(ctx, func(d *state) {
		for _, t := range d.transactions {
			if t.UserID == userID && t.Asset == valueobject.AssetFindertoken {
				sum += t.Amount
			}
		}
	})
	return sum, nil
}

func (r *LedgerRepository) InsertClientGrant(ctx context.Context, g *entity.TokenGrant) error {
	return r.s.write(ctx, func(d *state) error {
		d.clientGrants = append(d.clientGrants, *g)
		return nil
	})
}

func (r *LedgerRepository) SumClientGrants(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var sum int64
	r.s.read(ctx, func(d *state) {
		for _, g := range d.clientGrants {
			if g.HolderID == clientID {
				sum += g.Amount
			}
		}
	})
	return sum, nil
}

func (r *LedgerRepository) ListClientGrants(ctx context.Context, clientID uuid.UUID) ([]*entity.TokenGrant, error) {
	var out []*entity.TokenGrant
	r.s.read(ctx, func(d *state) { out = grantsOf(d.clientGrants, clientID) })
	return out, nil
}

func (r *LedgerRepository) InsertFinderGrant(ctx context.Context, g *entity.TokenGrant) error {
	return r.s.write(ctx, func(d *state) error {
		d.finderGrants = append(d.finderGrants, *g)
		return nil
	})
}

func (r *LedgerRepository) ListFinderGrants(ctx context.Context, finderID uuid.UUID) ([]*entity.TokenGrant, error) {
	var out []*entity.TokenGrant
	r.s.read(ctx, func(d *state) { out = grantsOf(d.finderGrants, finderID) })
	return out, nil
}

func grantsOf(grants []entity.TokenGrant, holderID uuid.UUID) []*entity.TokenGrant {
	out := make([]*entity.TokenGrant, 0)
	for i := len(grants) - 1; i >= 0; i-- {
		if grants[i].HolderID == holderID {
			g := grants[i]
			out = append(out, &g)
		}
	}
	return out
}

func (r *LedgerRepository) HasDistribution(ctx context.Context, finderID uuid.UUID, month, year int) (bool, error) {
	var exists bool
	r.s.read(ctx, func(d *state) {
		for _, dist := range d.distributions {
			if dist.FinderID == finderID && dist.Month == month && dist.Year == year {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *LedgerRepository) InsertDistribution(ctx context.Context, dist *entity.TokenDistribution) error {
	return r.s.write(ctx, func(d *state) error {
		for _, existing := range d.distributions {
			if existing.FinderID == dist.FinderID && existing.Month == dist.Month && existing.Year == dist.Year {
				return apperror.ErrDuplicateReference
			}
		}
		d.distributions = append(d.distributions, *dist)
		return nil
	})
}

type DisputeRepository struct{ s *Store }

func (r *DisputeRepository) Create(ctx context.Context, dsp *entity.Dispute) error {
	return r.s.write(ctx, func(d *state) error {
		d.disputes[dsp.ID] = *dsp
		return nil
	})
}

func (r *DisputeRepository) Update(ctx context.Context, dsp *entity.Dispute) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.disputes[dsp.ID]; !ok {
			return apperror.ErrDisputeNotFound
		}
		d.disputes[dsp.ID] = *dsp
		return nil
	})
}

func (r *DisputeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	var (
		dsp entity.Dispute
		ok  bool
	)
	r.s.read(ctx, func(d *state) { dsp, ok = d.disputes[id] })
	if !ok {
		return nil, apperror.ErrDisputeNotFound
	}
	return &dsp, nil
}

func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Dispute, error) {
	return r.filter(ctx, func(dsp entity.Dispute) bool { return dsp.UserID == userID }), nil
}

func (r *DisputeRepository) ListByStatus(ctx context.Context, status *valueobject.DisputeStatus) ([]*entity.Dispute, error) {
	return r.filter(ctx, func(dsp entity.Dispute) bool { return status == nil || dsp.Status == *status }), nil
}

func (r *DisputeRepository) filter(ctx context.Context, keep func(entity.Dispute) bool) []*entity.Dispute {
	result := make([]*entity.Dispute, 0)
	r.s.read(ctx, func(d *state) {
		for _, dsp := range d.disputes {
			if keep(dsp) {
				cp := dsp
				result = append(result, &cp)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

type StrikeRepository struct{ s *Store }

func (r *StrikeRepository) Create(ctx context.Context, st *entity.Strike) error {
	return r.s.write(ctx, func(d *state) error {
		d.strikes[st.ID] = *st
		return nil
	})
}

func (r *StrikeRepository) Update(ctx context.Context, st *entity.Strike) error {
	return r.s.write(ctx, func(d *state) error {
		if _, ok := d.strikes[st.ID]; !ok {
			return apperror.ErrStrikeNotFound
		}
		d.strikes[st.ID] = *st
		return nil
	})
}

func (r *StrikeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Strike, error) {
	var (
		st entity.Strike
		ok bool
	)
	r.s.read(ctx, func(d *state) { st, ok = d.strikes[id] })
	if !ok {
		return nil, apperror.ErrStrikeNotFound
	}
	return &st, nil
}

func (r *StrikeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Strike, error) {
	result := make([]*entity.Strike, 0)
	r.s.read(ctx, func(d *state) {
		for _, st := range d.strikes {
			if st.UserID == userID {
				cp := st
				result = append(result, &cp)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *StrikeRepository) SumActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var sum int
	r.s.read(ctx, func(d *state) {
		for _, st := range d.strikes {
			if st.UserID == userID && st.Status.Counts() && st.ExpiresAt.After(now) {
				sum += st.StrikeCount
			}
		}
	})
	return sum, nil
}

func (r *StrikeRepository) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.s.write(ctx, func(d *state) error {
		for id, st := range d.strikes {
			if st.IsExpired(now) {
				st.Status = valueobject.StrikeStatusExpired
				st.UpdatedAt = now
				d.strikes[id] = st
				n++
			}
		}
		return nil
	})
	return n, err
}
