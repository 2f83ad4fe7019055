package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palabeo/palabeo/internal/validation"
)

const sessionUserID = "cjld2cjxh0000qzrmn831i7rn"

func TestValidateSession(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		res := validation.ValidateSession(map[string]any{
			"user": map[string]any{
				"id":    sessionUserID,
				"email": "Ana@Example.com",
				"role":  "admin",
				"name":  "Ana",
			},
			"exp": 1700000000,
		})
		require.True(t, res.Success, "errors: %v", res.Errors)
		assert.Equal(t, sessionUserID, res.Data.UserID)
		assert.Equal(t, "ana@example.com", res.Data.Email)
		assert.Equal(t, validation.RoleAdmin, res.Data.Role)
		require.NotNil(t, res.Data.Name)
		assert.Equal(t, "Ana", *res.Data.Name)
		assert.True(t, res.Data.IsAdmin())
	})

	t.Run("name is optional", func(t *testing.T) {
		res := validation.ValidateSession(map[string]any{
			"user": map[string]any{"id": sessionUserID, "email": "ana@example.com", "role": "USER"},
		})
		require.True(t, res.Success)
		assert.Nil(t, res.Data.Name)
		assert.False(t, res.Data.IsAdmin())
	})

	t.Run("missing session", func(t *testing.T) {
		res := validation.ValidateSession(nil)
		require.False(t, res.Success)
		assert.Equal(t, validation.Errors{{Field: "session", Code: validation.CodeRequired, Message: res.Errors[0].Message}}, res.Errors)
	})

	t.Run("session is not an object", func(t *testing.T) {
		res := validation.ValidateSession("token")
		require.False(t, res.Success)
		assert.Equal(t, "session", res.Errors[0].Field)
		assert.Equal(t, validation.CodeInvalidType, res.Errors[0].Code)
	})

	t.Run("missing user", func(t *testing.T) {
		for _, s := range []map[string]any{{}, {"user": nil}} {
			res := validation.ValidateSession(s)
			require.False(t, res.Success)
			assert.Equal(t, "session.user", res.Errors[0].Field)
			assert.Equal(t, validation.CodeRequired, res.Errors[0].Code)
		}
	})

	t.Run("user is not an object", func(t *testing.T) {
		res := validation.ValidateSession(map[string]any{"user": []any{"x"}})
		require.False(t, res.Success)
		assert.Equal(t, "session.user", res.Errors[0].Field)
		assert.Equal(t, validation.CodeInvalidType, res.Errors[0].Code)
	})

	t.Run("collects field errors", func(t *testing.T) {
		res := validation.ValidateSession(map[string]any{
			"user": map[string]any{"id": "123", "email": "bad", "role": "ROOT"},
		})
		require.False(t, res.Success)
		assert.Equal(t, []string{
			validation.CodeInvalidEmailFormat,
			validation.CodeInvalidCUIDFormat,
			validation.CodeInvalidRole,
		}, res.Errors.Codes())
	})
}
