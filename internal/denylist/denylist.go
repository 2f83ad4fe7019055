// Package denylist loads the common-password list from a YAML file and keeps
// the active password policy in sync with it.
//
// The file looks like:
//
//	include_defaults: true
//	passwords:
//	  - letmein
//	  - hunter2
//
// Without a file the built-in list is used.
package denylist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/palabeo/palabeo/internal/validation"
)

// ErrInvalidFile is returned when the denylist file cannot be parsed.
var ErrInvalidFile = errors.New("invalid password denylist file")

// File is the YAML document.
type File struct {
	// IncludeDefaults adds the built-in list to Passwords.
	IncludeDefaults bool     `yaml:"include_defaults"`
	Passwords       []string `yaml:"passwords"`
}

// Parse decodes a denylist document. Unknown keys are rejected and an empty
// document is an empty list.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &f, nil
}

// Policy builds the password policy described by f.
func (f *File) Policy() *validation.PasswordPolicy {
	passwords := f.Passwords
	if f.IncludeDefaults {
		passwords = append(append([]string{}, validation.DefaultCommonPasswords...), passwords...)
	}
	return validation.NewPasswordPolicy(passwords)
}

// LoadFile reads and parses path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading denylist: %w", err)
	}
	return Parse(data)
}

// Source holds the current policy. It is safe for concurrent use.
type Source struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
	current  atomic.Pointer[validation.PasswordPolicy]
}

// NewSource loads path, or the built-in list when path is empty.
func NewSource(path string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Source{path: path, logger: logger, debounce: 100 * time.Millisecond}
	s.current.Store(validation.DefaultPasswordPolicy())

	if path != "" {
		if err := s.Reload(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Policy returns the active policy.
func (s *Source) Policy() *validation.PasswordPolicy {
	return s.current.Load()
}

// Reload re-reads the file. On error the previous policy stays active.
func (s *Source) Reload() error {
	if s.path == "" {
		return nil
	}
	f, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	policy := f.Policy()
	s.current.Store(policy)
	s.logger.Info("password denylist loaded",
		slog.String("path", s.path),
		slog.Int("passwords", policy.Size()),
	)
	return nil
}

// Watch reloads the policy whenever the file is written or created, until
// ctx is cancelled. Bursts of events within the debounce interval cause a
// single reload. Without a file it returns immediately.
func (s *Source) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are seen too.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	s.logger.Info("watching password denylist", slog.String("path", s.path))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				if err := s.Reload(); err != nil {
					s.logger.Error("password denylist reload failed",
						slog.String("path", s.path),
						slog.String("error", err.Error()),
					)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			s.logger.Error("password denylist watcher error", slog.String("error", err.Error()))
		}
	}
}
