package validation_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palabeo/palabeo/internal/validation"
)

func TestValidateLoginData(t *testing.T) {
	t.Parallel()

	res := validation.ValidateLoginData(map[string]any{"email": " ANA@example.com", "password": "weak"})
	require.True(t, res.Success)
	assert.Equal(t, validation.LoginData{Email: "ana@example.com", Password: "weak"}, res.Data)

	res = validation.ValidateLoginData(map[string]any{"password": 42})
	require.False(t, res.Success)
	assert.Equal(t, []string{validation.CodeRequired, validation.CodeRequired}, res.Errors.Codes())
	assert.True(t, res.Errors.Has("email"))
	assert.True(t, res.Errors.Has("password"))
}

func TestValidateWordData(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		res := validation.ValidateWordData(map[string]any{
			"word":        " casa ",
			"translation": "maison",
			"langFrom":    "ES",
			"langTo":      "fr",
			"typeCode":    " noun ",
			"tag":         "",
		})
		require.True(t, res.Success, "errors: %v", res.Errors)
		assert.Equal(t, "casa", res.Data.Word)
		assert.Equal(t, "maison", res.Data.Translation)
		assert.Equal(t, validation.LanguageSpanish, res.Data.LangFrom)
		assert.Equal(t, validation.LanguageFrench, res.Data.LangTo)
		require.NotNil(t, res.Data.TypeCode)
		assert.Equal(t, "noun", *res.Data.TypeCode)
		assert.Nil(t, res.Data.Tag)
	})

	t.Run("translation errors use their own field", func(t *testing.T) {
		res := validation.ValidateWordData(map[string]any{
			"word":        "casa",
			"translation": "<b>maison</b>",
			"langFrom":    "es",
			"langTo":      "fr",
		})
		require.False(t, res.Success)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "translation", res.Errors[0].Field)
		assert.Equal(t, validation.CodeInvalidCharacters, res.Errors[0].Code)
		assert.True(t, strings.HasPrefix(res.Errors[0].Message, "Translation"))
	})

	t.Run("missing languages", func(t *testing.T) {
		res := validation.ValidateWordData(map[string]any{"word": "casa", "translation": "maison"})
		require.False(t, res.Success)
		assert.True(t, res.Errors.Has("langFrom"))
		assert.True(t, res.Errors.Has("langTo"))
		assert.False(t, res.Errors.HasCode(validation.CodeSameLanguages))
	})

	t.Run("same languages", func(t *testing.T) {
		res := validation.ValidateWordData(map[string]any{
			"word": "casa", "translation": "house", "langFrom": "en", "langTo": "EN",
		})
		require.False(t, res.Success)
		assert.Equal(t, []string{validation.CodeSameLanguages}, res.Errors.Codes())
	})

	t.Run("optional fields", func(t *testing.T) {
		res := validation.ValidateWordData(map[string]any{
			"word": "casa", "translation": "maison", "langFrom": "es", "langTo": "fr",
			"typeCode": 7,
			"tag":      strings.Repeat("a", validation.MaxTagLength+1),
		})
		require.False(t, res.Success)
		assert.Equal(t, []string{validation.CodeInvalidType, validation.CodeTooLong}, res.Errors.Codes())
	})
}

func TestValidateQuizParams(t *testing.T) {
	t.Parallel()

	res := validation.ValidateQuizParams(url.Values{})
	require.True(t, res.Success)
	assert.Equal(t, validation.QuizParams{Count: validation.DefaultQuizCount}, res.Data)

	res = validation.ValidateQuizParams(url.Values{"count": {"5"}, "langFrom": {"fr"}})
	require.True(t, res.Success)
	assert.Equal(t, 5, res.Data.Count)
	require.NotNil(t, res.Data.LangFrom)
	assert.Equal(t, validation.LanguageFrench, *res.Data.LangFrom)
	assert.Nil(t, res.Data.LangTo)

	tests := []struct {
		query url.Values
		code  string
	}{
		{url.Values{"count": {"21"}}, validation.CodeCountTooLarge},
		{url.Values{"count": {"0"}}, validation.CodeInvalidCount},
		{url.Values{"count": {"abc"}}, validation.CodeInvalidCount},
		{url.Values{"langTo": {"de"}}, validation.CodeUnsupportedLanguage},
		{url.Values{"langFrom": {"es"}, "langTo": {"es"}}, validation.CodeSameLanguages},
	}
	for _, tt := range tests {
		res := validation.ValidateQuizParams(tt.query)
		require.False(t, res.Success, tt.query.Encode())
		assert.Equal(t, []string{tt.code}, res.Errors.Codes(), tt.query.Encode())
	}
}

func TestValidateQuizAnswer(t *testing.T) {
	t.Parallel()

	res := validation.ValidateQuizAnswer(map[string]any{"wordId": "12", "answer": "  Maison "})
	require.True(t, res.Success)
	assert.Equal(t, validation.QuizAnswerData{WordID: 12, Answer: "Maison"}, res.Data)

	res = validation.ValidateQuizAnswer(map[string]any{"wordId": float64(3), "answer": "l'eau"})
	require.True(t, res.Success)
	assert.Equal(t, "leau", res.Data.Answer)

	tests := []struct {
		name    string
		payload map[string]any
		codes   []string
	}{
		{"missing both", map[string]any{}, []string{validation.CodeRequired, validation.CodeRequired}},
		{"empty answer", map[string]any{"wordId": 1, "answer": ""}, []string{validation.CodeRequired}},
		{"markup only", map[string]any{"wordId": 1, "answer": "<>"}, []string{validation.CodeEmptyAfterSanitization}},
		{"too long", map[string]any{"wordId": 1, "answer": strings.Repeat("a", 101)}, []string{validation.CodeTooLong}},
		{"wrong type", map[string]any{"wordId": 1, "answer": true}, []string{validation.CodeInvalidType}},
		{"bad id", map[string]any{"wordId": "2147483648", "answer": "x"}, []string{validation.CodeWordIDTooLarge}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validation.ValidateQuizAnswer(tt.payload)
			require.False(t, res.Success)
			assert.Equal(t, tt.codes, res.Errors.Codes())
		})
	}
}
