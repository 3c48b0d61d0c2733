package valueobject

import (
	"strings"

	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/finders-backend/internal/validation"
)

type EvidenceKind string

const (
	EvidenceText    EvidenceKind = "text"
	EvidenceLink    EvidenceKind = "link"
	EvidenceFile    EvidenceKind = "file"
	EvidenceMessage EvidenceKind = "message"
	EvidencePayment EvidenceKind = "payment"
)

// Evidence - одно доказательство в споре или страйке.
// Набор заполненных полей зависит от Kind.
type Evidence struct {
	Kind      EvidenceKind `json:"kind"`
	Text      string       `json:"text,omitempty"`
	URL       string       `json:"url,omitempty"`
	Path      string       `json:"path,omitempty"`
	MessageID string       `json:"messageId,omitempty"`
	Reference string       `json:"reference,omitempty"`
	Note      string       `json:"note,omitempty"`
}

func (e Evidence) Validate() error {
	switch e.Kind {
	case EvidenceText:
		if strings.TrimSpace(e.Text) == "" {
			return apperror.New(apperror.ErrCodeValidation, "текст доказательства обязателен")
		}
	case EvidenceLink:
		if err := validation.ValidateExternalLink(e.URL); err != nil {
			return err
		}
	case EvidenceFile:
		if strings.TrimSpace(e.Path) == "" {
			return apperror.New(apperror.ErrCodeValidation, "путь к файлу доказательства обязателен")
		}
	case EvidenceMessage:
		if strings.TrimSpace(e.MessageID) == "" {
			return apperror.New(apperror.ErrCodeValidation, "идентификатор сообщения обязателен")
		}
	case EvidencePayment:
		if strings.TrimSpace(e.Reference) == "" {
			return apperror.New(apperror.ErrCodeValidation, "референс платежа обязателен")
		}
	default:
		return apperror.New(apperror.ErrCodeValidation, "неизвестный тип доказательства")
	}
	return nil
}

// EvidenceList хранится в JSONB колонке.
type EvidenceList []Evidence

func (l EvidenceList) Validate() error {
	for _, e := range l {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}
