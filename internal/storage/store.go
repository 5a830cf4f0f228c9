// Package storage manages the two artifact directories: a staging area
// where downloads land and a public area they are served from.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store holds the staging and public directories for download artifacts.
type Store struct {
	StagingDir string
	PublicDir  string

	now func() time.Time
}

// New creates both directories if they do not exist.
func New(stagingDir, publicDir string) (*Store, error) {
	for _, dir := range []string{stagingDir, publicDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{StagingDir: stagingDir, PublicDir: publicDir, now: time.Now}, nil
}

// StagingPath returns the path under the staging directory for name.
func (s *Store) StagingPath(name string) string {
	return filepath.Join(s.StagingDir, name)
}

// PublicPath returns the path under the public directory for name.
func (s *Store) PublicPath(name string) string {
	return filepath.Join(s.PublicDir, name)
}

// Glob lists staged files whose name starts with prefix. The final artifact
// extension is chosen by the extractor, so callers match on the stem only.
// Names routinely contain glob metacharacters ("[Hotstar]"), so this is a
// literal prefix scan rather than a pattern match.
func (s *Store) Glob(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.StagingDir)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			matches = append(matches, filepath.Join(s.StagingDir, e.Name()))
		}
	}
	return matches, nil
}

// Publish moves a staged file into the public directory and returns its
// final file name. When a file with the same name already exists the stem
// gets a unix-timestamp suffix so the existing artifact is never replaced.
func (s *Store) Publish(stagingPath string) (string, error) {
	base := filepath.Base(stagingPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	ts := s.now().Unix()

	// Every candidate name is reserved with O_EXCL before the rename, so
	// two workers publishing the same name can never clobber each other.
	for attempt := 0; ; attempt++ {
		name := base
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, ts+int64(attempt-1), ext)
		}
		dst := filepath.Join(s.PublicDir, name)

		f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserve %s: %w", dst, err)
		}
		f.Close()

		if err := os.Rename(stagingPath, dst); err != nil {
			os.Remove(dst)
			return "", fmt.Errorf("publish %s: %w", name, err)
		}
		return name, nil
	}
}
