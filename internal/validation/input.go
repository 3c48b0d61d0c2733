// Package validation - проверки пользовательского ввода, общие для сущностей.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

// Ограничения полей.
const (
	MaxFindTitleLength          = 200
	MaxFindDescriptionLength    = 5000
	MaxCoverLetterLength        = 2000
	MaxDisputeDescriptionLength = 5000
	MaxAppealReasonLength       = 2000
	MaxExternalLinkLength       = 500
)

func invalid(format string, args ...any) error {
	return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf(format, args...))
}

// ValidateLength проверяет длину строки в символах. Нулевая граница не проверяется.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return invalid("%s должно быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return invalid("%s должно быть не более %d символов", fieldName, max)
	}
	return nil
}

// Required обрезает пробелы и проверяет, что значение не пустое и не длиннее max.
func Required(fieldName, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid("%s обязательно", fieldName)
	}
	if err := ValidateLength(fieldName, value, 0, max); err != nil {
		return "", err
	}
	return value, nil
}

// Optional обрезает пробелы и проверяет только верхнюю границу.
func Optional(fieldName, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if err := ValidateLength(fieldName, value, 0, max); err != nil {
		return "", err
	}
	return value, nil
}

// ValidateExternalLink принимает только абсолютные http(s) ссылки.
func ValidateExternalLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return invalid("ссылка обязательна")
	}
	if err := ValidateLength("ссылка", link, 0, MaxExternalLinkLength); err != nil {
		return err
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return invalid("некорректный формат URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalid("ссылка должна начинаться с http:// или https://")
	}
	if parsed.Host == "" {
		return invalid("ссылка должна содержать доменное имя")
	}
	return nil
}
