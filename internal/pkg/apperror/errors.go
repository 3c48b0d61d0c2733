package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCodeInsufficientTokens ErrorCode = "INSUFFICIENT_TOKENS"
	ErrCodeInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	// Details попадают в тело ответа как есть (например, requiredTokens).
	Details map[string]any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы sentinel-ошибки
// находились через errors.Is даже после WithDetails.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithDetails возвращает копию ошибки с дополнительными полями.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInsufficientTokens, ErrCodeInsufficientFunds:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeExternalService:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

func IsInsufficientTokens(err error) bool {
	return hasCode(err, ErrCodeInsufficientTokens)
}

// InsufficientTokens формирует ошибку, по которой клиент предлагает купить токены.
func InsufficientTokens(required, current int64) *AppError {
	return ErrInsufficientTokens.WithDetails(map[string]any{
		"needsToPurchaseTokens": true,
		"requiredTokens":        required,
		"currentBalance":        current,
	})
}

var (
	ErrFindNotFound       = New(ErrCodeNotFound, "заявка не найдена")
	ErrProposalNotFound   = New(ErrCodeNotFound, "предложение не найдено")
	ErrContractNotFound   = New(ErrCodeNotFound, "контракт не найден")
	ErrSubmissionNotFound = New(ErrCodeNotFound, "сдача работы не найдена")
	ErrFinderNotFound     = New(ErrCodeNotFound, "исполнитель не найден")
	ErrClientNotFound     = New(ErrCodeNotFound, "клиент не найден")
	ErrUserNotFound       = New(ErrCodeNotFound, "пользователь не найден")
	ErrDisputeNotFound    = New(ErrCodeNotFound, "спор не найден")
	ErrStrikeNotFound     = New(ErrCodeNotFound, "страйк не найден")
	ErrLevelNotFound      = New(ErrCodeNotFound, "уровень исполнителя не найден")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrNotParticipant     = New(ErrCodeForbidden, "пользователь не является участником контракта")

	ErrAlreadyAccepted    = New(ErrCodeBadRequest, "по этой заявке уже принято другое предложение")
	ErrInsufficientTokens = New(ErrCodeInsufficientTokens, "недостаточно токенов")
	ErrInsufficientFunds  = New(ErrCodeInsufficientFunds, "недостаточно средств")
	ErrDuplicateReference = New(ErrCodeConflict, "операция с этим идентификатором уже проведена")
	ErrPaymentGateway     = New(ErrCodeExternalService, "платёжный шлюз недоступен")
)
