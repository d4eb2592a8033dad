// Package local stores artifacts on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ArtifactStore = (*Store)(nil)

// Store implements driven.ArtifactStore under a base directory.
// Keys are slash-separated relative paths.
type Store struct {
	basePath string
}

// NewStore creates the base directory if needed
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	return &Store{basePath: abs}, nil
}

// BasePath returns the absolute root directory
func (s *Store) BasePath() string { return s.basePath }

// fullPath maps a key inside the base directory, rejecting escapes
func (s *Store) fullPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(s.basePath, clean), nil
}

// Put writes data under key, creating parent directories
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Get reads the file stored under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// DeletePrefix removes every file whose key starts with prefix and any
// directories left empty
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if strings.TrimSpace(strings.Trim(prefix, "/")) == "" {
		return fmt.Errorf("%w: empty prefix", domain.ErrInvalidInput)
	}

	if strings.HasSuffix(prefix, "/") {
		dir, err := s.fullPath(prefix)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to delete directory: %w", err)
		}
		return nil
	}

	return filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if d.IsDir() {
			if key != "." && strings.HasPrefix(key+"/", prefix) && !strings.HasPrefix(prefix, key+"/") {
				if err := os.RemoveAll(path); err != nil {
					return err
				}
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(key, prefix) {
			return os.Remove(path)
		}
		return nil
	})
}
