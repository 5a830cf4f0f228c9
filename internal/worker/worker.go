// Package worker executes download jobs: it drives the extractor (or the
// music-lookup path), relays progress into the task registry, and publishes
// the finished artifact.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/arjunmehra/streamfetch/internal/domain"
	"github.com/arjunmehra/streamfetch/internal/extract"
	"github.com/arjunmehra/streamfetch/internal/musiclookup"
	"github.com/arjunmehra/streamfetch/internal/profile"
	"github.com/arjunmehra/streamfetch/internal/registry"
	"github.com/arjunmehra/streamfetch/internal/storage"
	"github.com/arjunmehra/streamfetch/pkg/telemetry"
)

// ErrCancelled is the terminal error for jobs stopped by the user. Its text
// is the message clients see on the progress stream.
var ErrCancelled = errors.New("Cancelled")

const downloadChunkSize = 8 * 1024

// Job is one accepted download request.
type Job struct {
	Handle  *registry.Handle
	URL     string
	Profile string
	VideoID string
	AudioID string
}

// Pool runs jobs on their own goroutines, with optional admission control
// limiting how many execute at once.
type Pool struct {
	registry   *registry.Registry
	gateway    extract.Gateway
	lookup     *musiclookup.Client
	store      *storage.Store
	cookiesDir string
	logger     *slog.Logger
	http       *http.Client

	sem chan struct{}
}

// NewPool creates a pool. maxConcurrent bounds simultaneous downloads;
// zero means unbounded.
func NewPool(reg *registry.Registry, gw extract.Gateway, lookup *musiclookup.Client,
	store *storage.Store, cookiesDir string, maxConcurrent int, logger *slog.Logger) *Pool {
	p := &Pool{
		registry:   reg,
		gateway:    gw,
		lookup:     lookup,
		store:      store,
		cookiesDir: cookiesDir,
		logger:     logger,
		http:       &http.Client{},
	}
	if maxConcurrent > 0 {
		p.sem = make(chan struct{}, maxConcurrent)
	}
	return p
}

// Submit starts the job in the background and returns immediately. When the
// pool is at capacity the job waits in the starting state for a slot.
func (p *Pool) Submit(job Job) {
	go func() {
		if p.sem != nil {
			p.sem <- struct{}{}
			defer func() { <-p.sem }()
		}
		p.run(job)
	}()
}

func (p *Pool) run(job Job) {
	telemetry.WorkerJobsInFlight.Inc()
	defer telemetry.WorkerJobsInFlight.Dec()
	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job.Handle.Token.OnCancel(cancel)

	var err error
	if job.Profile == profile.Spotify {
		err = p.runMusic(ctx, job)
	} else {
		err = p.runGeneral(ctx, job)
	}

	telemetry.WorkerJobDurationSeconds.WithLabelValues(job.Profile).Observe(time.Since(start).Seconds())

	if err != nil {
		msg := err.Error()
		if errors.Is(err, ErrCancelled) || job.Handle.Token.Cancelled() {
			msg = ErrCancelled.Error()
		}
		p.registry.Update(job.Handle.ID, domain.Update{
			Status:  domain.StatusError,
			Message: msg,
		})
		telemetry.WorkerJobsProcessed.WithLabelValues(job.Profile, string(domain.StatusError)).Inc()
		p.logger.Error("download job failed",
			slog.String("task_id", job.Handle.ID),
			slog.String("model", job.Profile),
			slog.String("error", err.Error()))
		return
	}

	telemetry.WorkerJobsProcessed.WithLabelValues(job.Profile, string(domain.StatusFinished)).Inc()
	p.logger.Info("download job finished",
		slog.String("task_id", job.Handle.ID),
		slog.String("model", job.Profile),
		slog.Duration("took", time.Since(start)))
}

// publish moves the staged artifact into the public directory and marks the
// task finished with its download link.
func (p *Pool) publish(job Job, stagingPath string) error {
	name, err := p.store.Publish(stagingPath)
	if err != nil {
		return err
	}
	p.registry.Update(job.Handle.ID, domain.Update{
		Status:      domain.StatusFinished,
		Progress:    domain.Float64(100),
		Message:     "Ready",
		Filename:    name,
		DownloadURL: "/file/" + url.PathEscape(name),
	})
	return nil
}

// formatSelector builds the extractor format expression from the requested
// variant IDs, plus the human-readable description used in status messages.
func formatSelector(videoID, audioID string) (selector, desc string) {
	switch {
	case videoID != "" && audioID != "":
		return videoID + "+" + audioID, fmt.Sprintf("Merging Video %s + Audio %s", videoID, audioID)
	case videoID != "":
		// The chosen ID is trusted as-is; no bestaudio is appended.
		return videoID, "Downloading Format " + videoID
	case audioID != "":
		return audioID, "Audio Only: " + audioID
	default:
		return "best", "Best Available"
	}
}

func (p *Pool) runGeneral(ctx context.Context, job Job) error {
	opts := profile.Options(job.Profile, p.cookiesDir)
	opts.MergeOutputFormat = "mp4"
	selector, desc := formatSelector(job.VideoID, job.AudioID)
	opts.FormatSelector = selector

	p.registry.Update(job.Handle.ID, domain.Update{
		Status:  domain.StatusStarting,
		Message: fmt.Sprintf("Fetching Metadata... (%s)", desc),
	})

	meta, err := p.gateway.Probe(ctx, job.URL, opts)
	if err != nil {
		return fmt.Errorf("Metadata Error: %w", err)
	}
	if job.Handle.Token.Cancelled() {
		return ErrCancelled
	}

	name := FormatFilename(meta, job.Profile)
	p.registry.Update(job.Handle.ID, domain.Update{
		Status:   domain.StatusDownloading,
		Message:  "Starting: " + name,
		Filename: name,
	})

	opts.OutputTemplate = p.store.StagingPath(name + ".%(ext)s")
	err = p.gateway.Fetch(ctx, job.URL, opts, func(pr extract.Progress) {
		p.registry.Update(job.Handle.ID, domain.Update{
			Status:   domain.StatusDownloading,
			Progress: domain.Float64(pr.Percent),
			Message:  fmt.Sprintf("Downloading (%s)", desc),
			Speed:    pr.Speed,
			ETA:      pr.ETA,
		})
	})
	if err != nil {
		return err
	}

	hits, err := p.store.Glob(name)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		return &domain.ArtifactMissingError{}
	}
	return p.publish(job, hits[0])
}

func (p *Pool) runMusic(ctx context.Context, job Job) error {
	p.registry.Update(job.Handle.ID, domain.Update{
		Status:  domain.StatusStarting,
		Message: "Processing Spotify Link...",
	})

	resolved, err := p.lookup.Resolve(ctx, job.URL)
	if err != nil {
		return err
	}

	title := resolved.Title
	if resolved.Artist != "" {
		title = resolved.Artist + " - " + title
	}
	name := SanitizeFilename(fmt.Sprintf("%s [Spotify] WEB-DL", title))

	if job.Handle.Token.Cancelled() {
		return ErrCancelled
	}
	p.registry.Update(job.Handle.ID, domain.Update{
		Status:   domain.StatusDownloading,
		Message:  fmt.Sprintf("Downloading: %s.mp3", name),
		Filename: name,
	})

	stagingPath := p.store.StagingPath(name + ".mp3")
	if err := p.fetchDirect(ctx, job, resolved.Link, stagingPath); err != nil {
		if errors.Is(err, ErrCancelled) {
			return ErrCancelled
		}
		return fmt.Errorf("Spotify API Error: %w", err)
	}
	return p.publish(job, stagingPath)
}

// fetchDirect streams a resolved link straight to the staging file, emitting
// percentage progress when the response advertises its length.
func (p *Pool) fetchDirect(ctx context.Context, job Job, link, stagingPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("direct download status %d", resp.StatusCode)
	}

	f, err := os.Create(stagingPath)
	if err != nil {
		return err
	}
	defer f.Close()

	total := resp.ContentLength
	if total <= 0 {
		_, err = io.Copy(f, resp.Body)
		return err
	}

	var written int64
	lastPct := -1
	buf := make([]byte, downloadChunkSize)
	for {
		if job.Handle.Token.Cancelled() {
			return ErrCancelled
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return werr
			}
			written += int64(n)
			pct := int(100 * written / total)
			if pct != lastPct {
				lastPct = pct
				p.registry.Update(job.Handle.ID, domain.Update{
					Status:   domain.StatusDownloading,
					Progress: domain.Float64(float64(pct)),
					Message:  fmt.Sprintf("Downloading %d%%", pct),
				})
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
