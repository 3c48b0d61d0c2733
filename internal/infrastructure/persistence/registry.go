package persistence

import (
	"github.com/ignatzorin/finders-backend/internal/domain/repository"
	"github.com/jmoiron/sqlx"
)

// NewRegistry создаёт Postgres-адаптеры для всех портов.
func NewRegistry(db *sqlx.DB) repository.Registry {
	return repository.Registry{
		Tx:            NewTxManager(db),
		Users:         NewUserRepositoryAdapter(db),
		Finders:       NewFinderRepositoryAdapter(db),
		Clients:       NewClientRepositoryAdapter(db),
		Levels:        NewLevelRepositoryAdapter(db),
		Finds:         NewFindRepositoryAdapter(db),
		Proposals:     NewProposalRepositoryAdapter(db),
		Contracts:     NewContractRepositoryAdapter(db),
		Submissions:   NewSubmissionRepositoryAdapter(db),
		Ledger:        NewLedgerRepositoryAdapter(db),
		Disputes:      NewDisputeRepositoryAdapter(db),
		Strikes:       NewStrikeRepositoryAdapter(db),
		Settings:      NewSettingsRepositoryAdapter(db),
		Notifications: NewNotificationRepositoryAdapter(db),
	}
}
