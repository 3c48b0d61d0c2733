package valueobject

import "github.com/ignatzorin/finders-backend/internal/pkg/apperror"

// EscrowStatus - состояние средств по контракту.
type EscrowStatus string

const (
	EscrowStatusPending   EscrowStatus = "pending"
	EscrowStatusFunded    EscrowStatus = "funded"
	EscrowStatusReleased  EscrowStatus = "released"
	EscrowStatusCancelled EscrowStatus = "cancelled"
)

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusPending:   {EscrowStatusFunded},
	EscrowStatusFunded:    {EscrowStatusReleased, EscrowStatusCancelled},
	EscrowStatusReleased:  {},
	EscrowStatusCancelled: {},
}

func (s EscrowStatus) IsValid() bool {
	_, ok := escrowTransitions[s]
	return ok
}

func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	for _, allowed := range escrowTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusCancelled
}

type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusAccepted  SubmissionStatus = "accepted"
	SubmissionStatusRejected  SubmissionStatus = "rejected"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

type FindStatus string

const (
	FindStatusOpen       FindStatus = "open"
	FindStatusInProgress FindStatus = "in_progress"
	FindStatusCompleted  FindStatus = "completed"
	FindStatusCancelled  FindStatus = "cancelled"
)

// DisputeStatus - этапы рассмотрения спора администратором.
type DisputeStatus string

const (
	DisputeStatusPending       DisputeStatus = "pending"
	DisputeStatusInvestigating DisputeStatus = "investigating"
	DisputeStatusResolved      DisputeStatus = "resolved"
	DisputeStatusRejected      DisputeStatus = "rejected"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusPending:       {DisputeStatusInvestigating, DisputeStatusResolved, DisputeStatusRejected},
	DisputeStatusInvestigating: {DisputeStatusResolved, DisputeStatusRejected},
	DisputeStatusResolved:      {},
	DisputeStatusRejected:      {},
}

func NewDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	if _, ok := disputeTransitions[s]; !ok {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус спора")
	}
	return s, nil
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	for _, allowed := range disputeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s DisputeStatus) IsClosed() bool {
	return s == DisputeStatusResolved || s == DisputeStatusRejected
}

type StrikeStatus string

const (
	StrikeStatusActive   StrikeStatus = "active"
	StrikeStatusAppealed StrikeStatus = "appealed"
	StrikeStatusResolved StrikeStatus = "resolved"
	StrikeStatusExpired  StrikeStatus = "expired"
)

// Counts сообщает, учитывается ли страйк при расчёте уровня эскалации.
// Обжалованный страйк продолжает действовать до решения администратора.
func (s StrikeStatus) Counts() bool {
	return s == StrikeStatusActive || s == StrikeStatusAppealed
}

// StrikeSeverity определяет вес страйка.
type StrikeSeverity string

const (
	StrikeSeverityLow    StrikeSeverity = "low"
	StrikeSeverityMedium StrikeSeverity = "medium"
	StrikeSeverityHigh   StrikeSeverity = "high"
)

func NewStrikeSeverity(s string) (StrikeSeverity, error) {
	sev := StrikeSeverity(s)
	if sev.Count() == 0 {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная тяжесть нарушения")
	}
	return sev, nil
}

// Count возвращает количество страйков, которое добавляет нарушение.
func (s StrikeSeverity) Count() int {
	switch s {
	case StrikeSeverityLow:
		return 1
	case StrikeSeverityMedium:
		return 3
	case StrikeSeverityHigh:
		return 5
	}
	return 0
}

// EscalationLevel переводит сумму активных страйков в уровень ограничений 0..3.
func EscalationLevel(totalStrikes int) int {
	switch {
	case totalStrikes <= 0:
		return 0
	case totalStrikes <= 2:
		return 1
	case totalStrikes <= 4:
		return 2
	default:
		return 3
	}
}

type Role string

const (
	RoleClient Role = "client"
	RoleFinder Role = "finder"
	RoleAdmin  Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleFinder || r == RoleAdmin
}

// TransactionType - тип записи в журнале операций.
type TransactionType string

const (
	TxTokenGrant          TransactionType = "token_grant"
	TxTokenDeduction      TransactionType = "token_deduction"
	TxTokenPurchase       TransactionType = "token_purchase"
	TxMonthlyDistribution TransactionType = "monthly_distribution"
	TxEscrowDeposit       TransactionType = "escrow_deposit"
	TxEscrowRefund        TransactionType = "escrow_refund"
	TxEarningsRelease     TransactionType = "earnings_release"
)

// Asset - что именно движется по журналу: токены или деньги.
type Asset string

const (
	AssetFindertoken Asset = "findertoken"
	AssetMoney       Asset = "money"
)
