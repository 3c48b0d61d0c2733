// Package memory - in-memory реализация портов хранилища.
// Используется в тестах и при STORAGE_DRIVER=memory для локального запуска.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ignatzorin/finders-backend/internal/domain/entity"
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
)

type txKey struct{}

type state struct {
	users         map[uuid.UUID]entity.User
	finders       map[uuid.UUID]entity.Finder
	clients       map[uuid.UUID]entity.Client
	levels        map[uuid.UUID]entity.FinderLevel
	finds         map[uuid.UUID]entity.Find
	proposals     map[uuid.UUID]entity.Proposal
	contracts     map[uuid.UUID]entity.Contract
	submissions   map[uuid.UUID]entity.OrderSubmission // ключ - contract id
	transactions  []entity.Transaction
	clientGrants  []entity.TokenGrant
	finderGrants  []entity.TokenGrant
	distributions []entity.TokenDistribution
	disputes      map[uuid.UUID]entity.Dispute
	strikes       map[uuid.UUID]entity.Strike
	settings      map[string]string
	notifications []entity.Notification
}

func newState() state {
	return state{
		users:       map[uuid.UUID]entity.User{},
		finders:     map[uuid.UUID]entity.Finder{},
		clients:     map[uuid.UUID]entity.Client{},
		levels:      map[uuid.UUID]entity.FinderLevel{},
		finds:       map[uuid.UUID]entity.Find{},
		proposals:   map[uuid.UUID]entity.Proposal{},
		contracts:   map[uuid.UUID]entity.Contract{},
		submissions: map[uuid.UUID]entity.OrderSubmission{},
		disputes:    map[uuid.UUID]entity.Dispute{},
		strikes:     map[uuid.UUID]entity.Strike{},
		settings:    map[string]string{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s state) clone() state {
	return state{
		users:         cloneMap(s.users),
		finders:       cloneMap(s.finders),
		clients:       cloneMap(s.clients),
		levels:        cloneMap(s.levels),
		finds:         cloneMap(s.finds),
		proposals:     cloneMap(s.proposals),
		contracts:     cloneMap(s.contracts),
		submissions:   cloneMap(s.submissions),
		transactions:  append([]entity.Transaction(nil), s.transactions...),
		clientGrants:  append([]entity.TokenGrant(nil), s.clientGrants...),
		finderGrants:  append([]entity.TokenGrant(nil), s.finderGrants...),
		distributions: append([]entity.TokenDistribution(nil), s.distributions...),
		disputes:      cloneMap(s.disputes),
		strikes:       cloneMap(s.strikes),
		settings:      cloneMap(s.settings),
		notifications: append([]entity.Notification(nil), s.notifications...),
	}
}

// Store хранит все данные. Записи сериализуются через txMu вместе с транзакциями,
// поэтому откат транзакции не затирает чужие изменения.
// Пока транзакция открыта, чтения вне неё видят committed - снимок до её начала.
type Store struct {
	txMu      sync.Mutex
	mu        sync.RWMutex
	data      state
	committed *state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// WithinTx делает снимок состояния и восстанавливает его, если fn вернула ошибку.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.committed = &snapshot
	s.mu.Unlock()

	rollback := func() {
		s.mu.Lock()
		s.data = snapshot.clone()
		s.mu.Unlock()
	}
	defer func() {
		s.mu.Lock()
		s.committed = nil
		s.mu.Unlock()
	}()

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		rollback()
		return err
	}
	return nil
}

// write выполняет изменение данных; вне транзакции дожидается завершения текущих транзакций.
func (s *Store) write(ctx context.Context, fn func(d *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

// read читает данные: внутри транзакции её собственные изменения, снаружи только зафиксированные.
func (s *Store) read(ctx context.Context, fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.committed != nil && !inTx(ctx) {
		fn(s.committed)
		return
	}
	fn(&s.data)
}

// Registry возвращает все in-memory репозитории поверх одного Store.
func (s *Store) Registry() repository.Registry {
	return repository.Registry{
		Tx:            s,
		Users:         &UserRepository{s: s},
		Finders:       &FinderRepository{s: s},
		Clients:       &ClientRepository{s: s},
		Levels:        &LevelRepository{s: s},
		Finds:         &FindRepository{s: s},
		Proposals:     &ProposalRepository{s: s},
		Contracts:     &ContractRepository{s: s},
		Submissions:   &SubmissionRepository{s: s},
		Ledger:        &LedgerRepository{s: s},
		Disputes:      &DisputeRepository{s: s},
		Strikes:       &StrikeRepository{s: s},
		Settings:      &SettingsRepository{s: s},
		Notifications: &NotificationRepository{s: s},
	}
}

// SeedLevels заполняет таблицу уровней так же, как миграция для Postgres.
func (s *Store) SeedLevels(levels ...entity.FinderLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range levels {
		s.data.levels[l.ID] = l
	}
}

// DefaultLevels совпадают с сидом миграции 0002.
func DefaultLevels() []entity.FinderLevel {
	return []entity.FinderLevel{
		{ID: uuid.MustParse("7d0d8c1e-3a51-4d8e-9a51-6f1f0b1a0001"), Name: "Bronze", Rank: 1, MonthlyTokens: 20},
		{ID: uuid.MustParse("7d0d8c1e-3a51-4d8e-9a51-6f1f0b1a0002"), Name: "Silver", Rank: 2, MinEarnings: 5000000, MinJobs: 5, MinRating: 4.0, MonthlyTokens: 30},
		{ID: uuid.MustParse("7d0d8c1e-3a51-4d8e-9a51-6f1f0b1a0003"), Name: "Gold", Rank: 3, MinEarnings: 20000000, MinJobs: 20, MinRating: 4.5, MonthlyTokens: 50},
		{ID: uuid.MustParse("7d0d8c1e-3a51-4d8e-9a51-6f1f0b1a0004"), Name: "Platinum", Rank: 4, MinEarnings: 50000000, MinJobs: 50, MinRating: 4.8, MonthlyTokens: 80},
	}
}
