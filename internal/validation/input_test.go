package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

func TestRequired(t *testing.T) {
	v, err := Required("название", "  Найти юриста  ", 200)
	require.NoError(t, err)
	assert.Equal(t, "Найти юриста", v)

	_, err = Required("название", "   ", 200)
	assert.True(t, apperror.IsValidation(err))

	// длина считается в символах, а не в байтах
	_, err = Required("название", strings.Repeat("я", 200), 200)
	assert.NoError(t, err)
	_, err = Required("название", strings.Repeat("я", 201), 200)
	assert.True(t, apperror.IsValidation(err))
}

func TestOptional(t *testing.T) {
	v, err := Optional("описание", "", 10)
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = Optional("описание", strings.Repeat("a", 11), 10)
	assert.Error(t, err)
}

func TestValidateExternalLink(t *testing.T) {
	assert.NoError(t, ValidateExternalLink("https://example.com/path?q=1"))
	assert.NoError(t, ValidateExternalLink(" http://example.com "))

	for _, link := range []string{
		"",
		"ftp://example.com",
		"javascript:alert(1)",
		"https://",
		"https://example.com/" + strings.Repeat("a", MaxExternalLinkLength),
	} {
		assert.Error(t, ValidateExternalLink(link), link)
	}
}
