package denylist_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palabeo/palabeo/internal/denylist"
	"github.com/palabeo/palabeo/internal/validation"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func isCommon(p *validation.PasswordPolicy, password string) bool {
	return p.Validate(password).Errors.HasCode(validation.CodeCommonPassword)
}

func TestParse(t *testing.T) {
	t.Parallel()

	f, err := denylist.Parse([]byte("passwords:\n  - Tr0ub4dor&3\n  - hunter2\n"))
	require.NoError(t, err)
	assert.False(t, f.IncludeDefaults)
	assert.Equal(t, []string{"Tr0ub4dor&3", "hunter2"}, f.Passwords)

	policy := f.Policy()
	assert.Equal(t, 2, policy.Size())
	assert.True(t, isCommon(policy, "tr0ub4dor&3"))
	assert.False(t, isCommon(policy, "letmein"))
}

func TestParse_IncludeDefaults(t *testing.T) {
	t.Parallel()

	f, err := denylist.Parse([]byte("include_defaults: true\npasswords: [Tr0ub4dor&3]\n"))
	require.NoError(t, err)

	policy := f.Policy()
	assert.Equal(t, validation.DefaultPasswordPolicy().Size()+1, policy.Size())
	assert.True(t, isCommon(policy, "letmein"))
	assert.True(t, isCommon(policy, "Tr0ub4dor&3"))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := denylist.Parse([]byte("passwords: {not: a list}"))
	assert.ErrorIs(t, err, denylist.ErrInvalidFile)

	_, err = denylist.Parse([]byte("pasword: [typo]"))
	assert.ErrorIs(t, err, denylist.ErrInvalidFile)

	f, err := denylist.Parse(nil)
	require.NoError(t, err)
	assert.Zero(t, f.Policy().Size())
}

func TestNewSource_NoFile(t *testing.T) {
	t.Parallel()

	s, err := denylist.NewSource("", quietLogger)
	require.NoError(t, err)
	assert.Same(t, validation.DefaultPasswordPolicy(), s.Policy())
	assert.NoError(t, s.Reload())
	assert.NoError(t, s.Watch(context.Background()))
}

func TestNewSource_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := denylist.NewSource(filepath.Join(t.TempDir(), "missing.yaml"), quietLogger)
	assert.Error(t, err)
}

func TestSource_ReloadKeepsPolicyOnError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "denylist.yaml")
	writeFile(t, path, "passwords: [Sup3r$ecret]\n")

	s, err := denylist.NewSource(path, quietLogger)
	require.NoError(t, err)
	before := s.Policy()
	assert.True(t, isCommon(before, "Sup3r$ecret"))

	writeFile(t, path, "passwords: [unclosed\n")
	require.ErrorIs(t, s.Reload(), denylist.ErrInvalidFile)
	assert.Same(t, before, s.Policy())
}

func TestSource_Watch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "denylist.yaml")
	writeFile(t, path, "passwords: [Sup3r$ecret]\n")

	s, err := denylist.NewSource(path, quietLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// The watcher starts asynchronously, so keep rewriting until it notices.
	assert.Eventually(t, func() bool {
		writeFile(t, path, "passwords: [Sup3r$ecret, An0ther!pass]\n")
		return isCommon(s.Policy(), "An0ther!pass")
	}, 5*time.Second, 300*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
