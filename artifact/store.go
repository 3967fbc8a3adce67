// Package artifact persists task outputs on the filesystem, one directory per
// run: <root>/<run_id>/<name>.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidName = errors.New("invalid artifact name")
)

// NotFoundError reports an artifact that is absent from its run directory.
type NotFoundError struct {
	RunID string
	Name  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s file not found for run %s", e.Name, e.RunID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &FileStore{root: abs}, nil
}

func (s *FileStore) Root() string {
	return s.root
}

// Path returns where the named artifact of a run lives.
func (s *FileStore) Path(runID, name string) (string, error) {
	if err := checkSegment(runID); err != nil {
		return "", fmt.Errorf("run id %q: %w", runID, err)
	}
	if err := checkSegment(name); err != nil {
		return "", fmt.Errorf("artifact %q: %w", name, err)
	}
	return filepath.Join(s.root, runID, name), nil
}

// Write stores text as the named artifact of a run, replacing any previous
// content. The file is written to a temp file and renamed into place.
func (s *FileStore) Write(runID, name, text string) (string, error) {
	path, err := s.Path(runID, name)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.WriteString(text); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("atomic rename: %w", err)
	}
	return path, nil
}

func (s *FileStore) Read(runID, name string) (string, error) {
	path, err := s.Path(runID, name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{RunID: runID, Name: name}
		}
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return string(b), nil
}

// checkSegment accepts a single plain path element.
func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || filepath.Base(s) != s {
		return ErrInvalidName
	}
	return nil
}
