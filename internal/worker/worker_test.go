package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmehra/streamfetch/internal/domain"
	"github.com/arjunmehra/streamfetch/internal/extract"
	"github.com/arjunmehra/streamfetch/internal/musiclookup"
	"github.com/arjunmehra/streamfetch/internal/registry"
	"github.com/arjunmehra/streamfetch/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGateway struct {
	meta     *extract.Metadata
	probeErr error
	fetch    func(ctx context.Context, opts extract.Options, onProgress func(extract.Progress)) error
}

func (g *fakeGateway) Probe(_ context.Context, _ string, _ extract.Options) (*extract.Metadata, error) {
	return g.meta, g.probeErr
}

func (g *fakeGateway) Fetch(ctx context.Context, _ string, opts extract.Options, onProgress func(extract.Progress)) error {
	return g.fetch(ctx, opts, onProgress)
}

// writeArtifact materializes the output template the way the extractor
// would, picking mp4 as the final container. It takes no testing.T because
// it runs inside fetch callbacks on the worker goroutine.
func writeArtifact(tmpl string) {
	path := strings.Replace(tmpl, ".%(ext)s", ".mp4", 1)
	_ = os.WriteFile(path, []byte("artifact"), 0o644)
}

func newTestPool(t *testing.T, gw extract.Gateway, lookupEndpoint string) (*Pool, *registry.Registry, *storage.Store) {
	t.Helper()
	reg := registry.New(testLogger())
	store, err := storage.New(filepath.Join(t.TempDir(), "staging"), filepath.Join(t.TempDir(), "public"))
	require.NoError(t, err)
	lookup := musiclookup.NewClient(lookupEndpoint, musiclookup.NewCache())
	return NewPool(reg, gw, lookup, store, t.TempDir(), 2, testLogger()), reg, store
}

func waitTerminal(t *testing.T, reg *registry.Registry, id string) domain.Task {
	t.Helper()
	var task domain.Task
	require.Eventually(t, func() bool {
		got, err := reg.Get(id)
		if err != nil {
			return false
		}
		task = got
		return task.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return task
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "MyClip1", SanitizeFilename(`My:Clip?<1>`))
	assert.Equal(t, "100 done", SanitizeFilename("100% done"))
	assert.Equal(t, "trimmed", SanitizeFilename("  trimmed  "))
}

func TestFormatFilenameEpisodic(t *testing.T) {
	season, episode := 1, 3
	meta := &extract.Metadata{
		Title:   "Episode One",
		Series:  "Show",
		Season:  &season,
		Episode: &episode,
	}
	assert.Equal(t, "Show - S01E03 - Episode One [Hotstar] WEB-DL", FormatFilename(meta, "hotstar"))
}

func TestFormatFilenamePlain(t *testing.T) {
	meta := &extract.Metadata{Title: "Some Clip"}
	assert.Equal(t, "Some Clip [YouTube] WEB-DL", FormatFilename(meta, "ytdownload"))

	assert.Equal(t, "Unknown [Twitter] WEB-DL", FormatFilename(&extract.Metadata{}, "twitter"))
}

func TestFormatSelectorPolicy(t *testing.T) {
	sel, desc := formatSelector("137", "140")
	assert.Equal(t, "137+140", sel)
	assert.Equal(t, "Merging Video 137 + Audio 140", desc)

	sel, _ = formatSelector("137", "")
	assert.Equal(t, "137", sel)

	sel, desc = formatSelector("", "140")
	assert.Equal(t, "140", sel)
	assert.Equal(t, "Audio Only: 140", desc)

	sel, desc = formatSelector("", "")
	assert.Equal(t, "best", sel)
	assert.Equal(t, "Best Available", desc)
}

func TestGeneralJobLifecycle(t *testing.T) {
	gw := &fakeGateway{
		meta: &extract.Metadata{Title: "Some Clip"},
		fetch: func(_ context.Context, opts extract.Options, onProgress func(extract.Progress)) error {
			onProgress(extract.Progress{Percent: 50, Speed: "1.2MiB/s", ETA: "00:10"})
			writeArtifact(opts.OutputTemplate)
			return nil
		},
	}
	pool, reg, store := newTestPool(t, gw, "http://unused.invalid")

	h := reg.Create("ytdownload")
	pool.Submit(Job{Handle: h, URL: "https://youtube.com/watch?v=x", Profile: "ytdownload"})

	task := waitTerminal(t, reg, h.ID)
	assert.Equal(t, domain.StatusFinished, task.Status)
	assert.Equal(t, float64(100), task.Progress)
	assert.Equal(t, "Ready", task.Message)
	assert.Equal(t, "Some Clip [YouTube] WEB-DL.mp4", task.Filename)
	assert.True(t, strings.HasPrefix(task.DownloadURL, "/file/"))

	_, err := os.Stat(store.PublicPath(task.Filename))
	assert.NoError(t, err)
}

func TestGeneralJobProbeError(t *testing.T) {
	gw := &fakeGateway{probeErr: fmt.Errorf("unsupported url")}
	pool, reg, _ := newTestPool(t, gw, "http://unused.invalid")

	h := reg.Create("generic")
	pool.Submit(Job{Handle: h, URL: "https://example.com/x", Profile: "generic"})

	task := waitTerminal(t, reg, h.ID)
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Equal(t, "Metadata Error: unsupported url", task.Message)
}

func TestGeneralJobMissingArtifact(t *testing.T) {
	gw := &fakeGateway{
		meta: &extract.Metadata{Title: "Ghost"},
		fetch: func(_ context.Context, _ extract.Options, _ func(extract.Progress)) error {
			return nil
		},
	}
	pool, reg, _ := newTestPool(t, gw, "http://unused.invalid")

	h := reg.Create("generic")
	pool.Submit(Job{Handle: h, URL: "https://example.com/x", Profile: "generic"})

	task := waitTerminal(t, reg, h.ID)
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Equal(t, "File not found on server after download.", task.Message)
}

func TestCancellationYieldsCancelledMessage(t *testing.T) {
	started := make(chan struct{})
	gw := &fakeGateway{
		meta: &extract.Metadata{Title: "Long Clip"},
		fetch: func(ctx context.Context, _ extract.Options, _ func(extract.Progress)) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	pool, reg, _ := newTestPool(t, gw, "http://unused.invalid")

	h := reg.Create("ytdownload")
	pool.Submit(Job{Handle: h, URL: "https://youtube.com/watch?v=x", Profile: "ytdownload"})

	<-started
	require.NoError(t, reg.Cancel(h.ID))

	task := waitTerminal(t, reg, h.ID)
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Equal(t, "Cancelled", task.Message)
}

func TestMusicJobLifecycle(t *testing.T) {
	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "9")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer audio.Close()

	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"title":"Song","artist":"Artist","link":%q}`, audio.URL)
	}))
	defer lookup.Close()

	pool, reg, store := newTestPool(t, &fakeGateway{}, lookup.URL)

	h := reg.Create("spotify")
	pool.Submit(Job{Handle: h, URL: "https://open.spotify.com/track/abc", Profile: "spotify"})

	task := waitTerminal(t, reg, h.ID)
	assert.Equal(t, domain.StatusFinished, task.Status)
	assert.Equal(t, "Artist - Song [Spotify] WEB-DL.mp3", task.Filename)
	assert.Equal(t, float64(100), task.Progress)

	data, err := os.ReadFile(store.PublicPath(task.Filename))
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
}

func TestMusicJobUpstreamError(t *testing.T) {
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer lookup.Close()

	pool, reg, _ := newTestPool(t, &fakeGateway{}, lookup.URL)

	h := reg.Create("spotify")
	pool.Submit(Job{Handle: h, URL: "https://open.spotify.com/track/abc", Profile: "spotify"})

	task := waitTerminal(t, reg, h.ID)
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Contains(t, task.Message, "Spotify API Error")
}

func TestPoolBoundsConcurrency(t *testing.T) {
	release := make(chan struct{})
	running := make(chan string, 4)
	gw := &fakeGateway{
		meta: &extract.Metadata{Title: "Clip"},
		fetch: func(_ context.Context, opts extract.Options, _ func(extract.Progress)) error {
			running <- opts.OutputTemplate
			<-release
			writeArtifact(opts.OutputTemplate)
			return nil
		},
	}

	reg := registry.New(testLogger())
	store, err := storage.New(filepath.Join(t.TempDir(), "staging"), filepath.Join(t.TempDir(), "public"))
	require.NoError(t, err)
	pool := NewPool(reg, gw, musiclookup.NewClient("http://unused.invalid", musiclookup.NewCache()),
		store, t.TempDir(), 1, testLogger())

	h1 := reg.Create("generic")
	h2 := reg.Create("generic")
	pool.Submit(Job{Handle: h1, URL: "https://example.com/1", Profile: "generic"})
	pool.Submit(Job{Handle: h2, URL: "https://example.com/2", Profile: "generic"})

	<-running
	select {
	case <-running:
		t.Fatal("second job ran before the first released its slot")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	<-running

	waitTerminal(t, reg, h1.ID)
	waitTerminal(t, reg, h2.ID)
}
