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

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	return r.s.write(ctx, func(d *state) error {
		for _, existing := range d.users {
			if existing.Email == u.Email {
				return apperror.New(apperror.ErrCodeConflict, "пользователь с таким email уже существует")
			}
		}
		d.users[u.ID] = *u
		return nil
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var (
		u  entity.User
		ok bool
	)
	r.s.read(ctx, func(d *state) { u, ok = d.users[id] })
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) ListAdmins(ctx context.Context) ([]*entity.User, error) {
	result := make([]*entity.User, 0)
	r.s.read(ctx, func(d *state) {
		for _, u := range d.users {
			if u.Role == valueobject.RoleAdmin {
				cp := u
				result = append(result, &cp)
			}
		}
	})
	return result, nil
}

type FinderRepository struct{ s *Store }

func (r *FinderRepository) Create(ctx context.Context, f *entity.Finder) error {
	return r.s.write(ctx, func(d *state) error {
		d.finders[f.UserID] = *f
		return nil
	})
}

func (r *FinderRepository) FindByID(ctx context.Context, userID uuid.UUID) (*entity.Finder, error) {
	var (
		f  entity.Finder
		ok bool
	)
	r.s.read(ctx, func(d *state) { f, ok = d.finders[userID] })
	if !ok {
		return nil, apperror.ErrFinderNotFound
	}
	return &f, nil
}

func (r *FinderRepository) ListActive(ctx context.Context) ([]*entity.Finder, error) {
	result := make([]*entity.Finder, 0)
	r.s.read(ctx, func(d *state) {
		for _, f := range d.finders {
			if f.IsActive {
				cp := f
				result = append(result, &cp)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].UserID.String() < result[j].UserID.String() })
	return result, nil
}

func (r *FinderRepository) AdjustTokenBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := r.s.write(ctx, func(d *state) error {
		f, ok := d.finders[userID]
		if !ok {
			return apperror.ErrFinderNotFound
		}
		if f.FindertokenBalance+delta < 0 {
			return apperror.ErrInsufficientTokens
		}
		f.FindertokenBalance += delta
		f.UpdatedAt = time.Now().UTC()
		d.finders[userID] = f
		balance = f.FindertokenBalance
		return nil
	})
	return balance, err
}

func (r *FinderRepository) SetTokenBalance(ctx context.Context, userID uuid.UUID, balance int64) error {
	return r.update(ctx, userID, func(f *entity.Finder) { f.FindertokenBalance = balance })
}

func (r *FinderRepository) CreditEarnings(ctx context.Context, userID uuid.UUID, amount valueobject.Money) error {
	return r.update(ctx, userID, func(f *entity.Finder) {
		f.AvailableBalance += amount
		f.TotalEarned += amount
		f.JobsCompleted++
	})
}

func (r *FinderRepository) SetLevel(ctx context.Context, userID uuid.UUID, levelID *uuid.UUID) error {
	return r.update(ctx, userID, func(f *entity.Finder) { f.CurrentLevelID = levelID })
}

func (r *FinderRepository) update(ctx context.Context, userID uuid.UUID, fn func(f *entity.Finder)) error {
	return r.s.write(ctx, func(d *state) error {
		f, ok := d.finders[userID]
		if !ok {
			return apperror.ErrFinderNotFound
		}
		fn(&f)
		f.UpdatedAt = time.Now().UTC()
		d.finders[userID] = f
		return nil
	})
}

type ClientRepository struct{ s *Store }

func (r *ClientRepository) Create(ctx context.Context, c *entity.Client) error {
	return r.s.write(ctx, func(d *state) error {
		d.clients[c.UserID] = *c
		return nil
	})
}

func (r *ClientRepository) FindByID(ctx context.Context, userID uuid.UUID) (*entity.Client, error) {
	var (
		c  entity.Client
		ok bool
	)
	r.s.read(ctx, func(d *state) { c, ok = d.clients[userID] })
	if !ok {
		return nil, apperror.ErrClientNotFound
	}
	return &c, nil
}

func (r *ClientRepository) List(ctx context.Context) ([]*entity.Client, error) {
	result := make([]*entity.Client, 0)
	r.s.read(ctx, func(d *state) {
		for _, c := range d.clients {
			cp := c
			result = append(result, &cp)
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].UserID.String() < result[j].UserID.String() })
	return result, nil
}

func (r *ClientRepository) AdjustTokenBalance(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := r.s.write(ctx, func(d *state) error {
		c, ok := d.clients[userID]
		if !ok {
			return apperror.ErrClientNotFound
		}
		if c.FindertokenBalance+delta < 0 {
			return apperror.ErrInsufficientTokens
		}
		c.FindertokenBalance += delta
		c.UpdatedAt = time.Now().UTC()
		d.clients[userID] = c
		balance = c.FindertokenBalance
		return nil
	})
	return balance, err
}

func (r *ClientRepository) SetTokenBalance(ctx context.Context, userID uuid.UUID, balance int64) error {
	return r.update(ctx, userID, func(c *entity.Client) { c.FindertokenBalance = balance })
}

func (r *ClientRepository) CreditBalance(ctx context.Context, userID uuid.UUID, amount valueobject.Money) error {
	return r.update(ctx, userID, func(c *entity.Client) { c.AvailableBalance += amount })
}

func (r *ClientRepository) update(ctx context.Context, userID uuid.UUID, fn func(c *entity.Client)) error {
	return r.s.write(ctx, func(d *state) error {
		c, ok := d.clients[userID]
		if !ok {
			return apperror.ErrClientNotFound
		}
		fn(&c)
		c.UpdatedAt = time.Now().UTC()
		d.clients[userID] = c
		return nil
	})
}

type LevelRepository struct{ s *Store }

func (r *LevelRepository) List(ctx context.Context) ([]*entity.FinderLevel, error) {
	result := make([]*entity.FinderLevel, 0)
	r.s.read(ctx, func(d *state) {
		for _, l := range d.levels {
			cp := l
			result = append(result, &cp)
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Rank < result[j].Rank })
	return result, nil
}

func (r *LevelRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.FinderLevel, error) {
	var (
		l  entity.FinderLevel
		ok bool
	)
	r.s.read(ctx, func(d *state) { l, ok = d.levels[id] })
	if !ok {
		return nil, apperror.ErrLevelNotFound
	}
	return &l, nil
}

type NotificationRepository struct{ s *Store }

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.s.write(ctx, func(d *state) error {
		d.notifications = append(d.notifications, *n)
		return nil
	})
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Notification, error) {
	result := make([]*entity.Notification, 0)
	r.s.read(ctx, func(d *state) {
		for i := len(d.notifications) - 1; i >= 0; i-- {
			if d.notifications[i].UserID != userID {
				continue
			}
			cp := d.notifications[i]
			result = append(result, &cp)
			if limit > 0 && len(result) == limit {
				return
			}
		}
	})
	return result, nil
}

type SettingsRepository struct{ s *Store }

func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	r.s.read(ctx, func(d *state) { v, ok = d.settings[key] })
	return v, ok, nil
}

func (r *SettingsRepository) Set(ctx context.Context, key, value string, _ uuid.UUID) error {
	return r.s.write(ctx, func(d *state) error {
		d.settings[key] = value
		return nil
	})
}

func (r *SettingsRepository) List(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	r.s.read(ctx, func(d *state) { out = cloneMap(d.settings) })
	return out, nil
}
