package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arjunmehra/streamfetch/pkg/telemetry"
)

const (
	// MaxArtifactAge is how long a published file stays downloadable.
	MaxArtifactAge = time.Hour

	sweepInterval = 15 * time.Minute
)

// Sweeper deletes public artifacts older than MaxArtifactAge.
type Sweeper struct {
	store  *Store
	logger *slog.Logger
}

// NewSweeper creates a retention sweeper over the store's public directory.
func NewSweeper(store *Store, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: store, logger: logger}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.Sweep(time.Now().Add(-MaxArtifactAge))
			if n > 0 {
				s.logger.Info("retention sweep", slog.Int("deleted", n))
			}
		}
	}
}

// Sweep removes regular files whose modification time is before cutoff from
// both the public and staging directories and returns how many were deleted.
// Staging matters too: failed or cancelled jobs leave partial downloads
// behind there. Subdirectories are left alone.
func (s *Sweeper) Sweep(cutoff time.Time) int {
	deleted := 0
	for _, dir := range []string{s.store.PublicDir, s.store.StagingDir} {
		deleted += s.sweepDir(dir, cutoff)
	}
	return deleted
}

func (s *Sweeper) sweepDir(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Error("sweep: read dir", slog.String("error", err.Error()))
		return 0
	}

	deleted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Error("sweep: remove file",
				slog.String("file", e.Name()),
				slog.String("error", err.Error()))
			continue
		}
		telemetry.SweeperDeletedTotal.Inc()
		deleted++
	}
	return deleted
}
