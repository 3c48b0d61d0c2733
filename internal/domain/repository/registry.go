package repository

// Registry собирает все порты хранилища, чтобы драйверы (postgres, memory)
// подключались в main одной точкой.
type Registry struct {
	Tx            TxManager
	Users         UserRepository
	Finders       FinderRepository
	Clients       ClientRepository
	Levels        LevelRepository
	Finds         FindRepository
	Proposals     ProposalRepository
	Contracts     ContractRepository
	Submissions   SubmissionRepository
	Ledger        LedgerRepository
	Disputes      DisputeRepository
	Strikes       StrikeRepository
	Settings      SettingsRepository
	Notifications NotificationRepository
}
