// Package template supplies the base resume used when a tailoring request
// does not bring its own.
package template

import (
	_ "embed"
	"fmt"
	"os"
	"sync"
	"time"

	"resumetex/internal/errors"
	"resumetex/internal/latex"
)

//go:embed default.tex
var embeddedDefault string

// Embedded returns the resume bundled with the binary
func Embedded() string {
	return embeddedDefault
}

// Store serves the default resume: an override file when one is configured,
// otherwise the embedded document. An override that fails to load keeps the
// previous content.
type Store struct {
	mu      sync.RWMutex
	path    string
	content string
	loaded  time.Time

	watcher  *FileWatcher
	onReload func(error)
	logger   *errors.Logger
}

// NewStore loads the override file at path, or the embedded resume when path
// is empty.
func NewStore(path string, logger *errors.Logger) (*Store, error) {
	s := &Store{path: path, content: embeddedDefault, logger: logger}
	if path == "" {
		return s, nil
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Default implements ai.TemplateSource
func (s *Store) Default() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.content == "" {
		return "", fmt.Errorf("default resume is empty")
	}
	return s.content, nil
}

// Path returns the override file, or "" for the embedded resume
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the override file
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewConfigError(errors.ErrCodeMissingTemplate,
				fmt.Sprintf("default template %s does not exist", s.path), err)
		}
		return errors.NewConfigError(errors.ErrCodeMissingTemplate,
			fmt.Sprintf("failed to read default template %s", s.path), err)
	}

	content := string(data)
	if !latex.HasDocumentClass(content) {
		return errors.NewConfigError(errors.ErrCodeNotLaTeX,
			fmt.Sprintf("default template %s has no \\documentclass", s.path), nil)
	}

	s.mu.Lock()
	s.content = content
	s.loaded = time.Now()
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("Default template loaded", "file", s.path, "bytes", len(content))
	}
	return nil
}

// Watch reloads the override file whenever it changes on disk
func (s *Store) Watch() error {
	if s.path == "" {
		return nil
	}

	s.watcher = NewFileWatcher(s.path, 0, func() {
		err := s.Reload()
		if err != nil && s.logger != nil {
			s.logger.LogError(err, "Template reload failed, keeping previous version", "file", s.path)
		}
		if s.onReload != nil {
			s.onReload(err)
		}
	}, s.logger)
	return s.watcher.Start()
}

// OnReload registers fn to be told about every watcher-triggered reload.
// It must be called before Watch.
func (s *Store) OnReload(fn func(error)) {
	s.onReload = fn
}

// Close stops the watcher if one is running
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Stop()
}

// Stats reports where the default resume comes from
func (s *Store) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"source":   "embedded",
		"bytes":    len(s.content),
		"watching": s.watcher != nil && s.watcher.IsRunning(),
	}
	if s.path != "" {
		stats["source"] = s.path
		stats["loaded_at"] = s.loaded.Format(time.RFC3339)
	}
	return stats
}
