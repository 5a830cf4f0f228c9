package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmehra/streamfetch/internal/domain"
)

func TestCreate_InitialState(t *testing.T) {
	r := New(nil)
	h := r.Create("hotstar")

	task, err := r.Get(h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStarting, task.Status)
	assert.Equal(t, 0.0, task.Progress)
	assert.Equal(t, "hotstar", task.Model)
}

func TestGet_UnknownID(t *testing.T) {
	r := New(nil)
	_, err := r.Get("nope")

	var notFound *domain.TaskNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestUpdate_MergesAndForwards(t *testing.T) {
	r := New(nil)
	h := r.Create("generic")
	events, err := r.Subscribe(h.ID)
	require.NoError(t, err)

	r.Update(h.ID, domain.Update{
		Status:   domain.StatusDownloading,
		Progress: domain.Float64(42.5),
		Speed:    "1.2MiB/s",
	})

	task, err := r.Get(h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDownloading, task.Status)
	assert.Equal(t, 42.5, task.Progress)
	assert.Equal(t, "1.2MiB/s", task.Speed)
	// Untouched fields survive.
	assert.Equal(t, "generic", task.Model)

	select {
	case u := <-events:
		assert.Equal(t, domain.StatusDownloading, u.Status)
		require.NotNil(t, u.Progress)
		assert.Equal(t, 42.5, *u.Progress)
	default:
		t.Fatal("expected event on the channel")
	}
}

func TestUpdate_UnknownIDIsNoop(t *testing.T) {
	r := New(nil)
	assert.NotPanics(t, func() {
		r.Update("gone", domain.Update{Status: domain.StatusError})
	})
}

func TestUpdate_FullChannelDoesNotBlock(t *testing.T) {
	r := New(nil)
	h := r.Create("generic")

	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBuffer+10; i++ {
			r.Update(h.ID, domain.Update{Progress: domain.Float64(float64(i))})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update blocked on a full event channel")
	}

	// Stored state still reflects the last write.
	task, err := r.Get(h.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(eventBuffer+9), task.Progress)
}

func TestLifecycle_TerminalStateSticks(t *testing.T) {
	r := New(nil)
	h := r.Create("generic")

	r.Update(h.ID, domain.Update{Status: domain.StatusDownloading, Progress: domain.Float64(50)})
	r.Update(h.ID, domain.Update{
		Status:      domain.StatusFinished,
		Progress:    domain.Float64(100),
		DownloadURL: "/file/clip.mp4",
	})

	task, err := r.Get(h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, task.Status)
	assert.Equal(t, 100.0, task.Progress)
	assert.NotEmpty(t, task.DownloadURL)
	assert.False(t, task.CompletedAt.IsZero())
}

func TestCancel(t *testing.T) {
	r := New(nil)
	h := r.Create("generic")

	assert.False(t, h.Token.Cancelled())
	require.NoError(t, r.Cancel(h.ID))
	assert.True(t, h.Token.Cancelled())

	var notFound *domain.TaskNotFoundError
	assert.ErrorAs(t, r.Cancel("missing"), &notFound)
}

func TestToken_OnCancelFiresOnce(t *testing.T) {
	tok := &Token{}
	fired := 0
	tok.OnCancel(func() { fired++ })

	tok.Cancel()
	tok.Cancel()
	assert.Equal(t, 1, fired)

	// Registering after the trip fires immediately.
	late := false
	tok.OnCancel(func() { late = true })
	assert.True(t, late)
}

func TestReap_RemovesOnlyStaleTerminalTasks(t *testing.T) {
	r := New(nil)

	stale := r.Create("generic")
	r.Update(stale.ID, domain.Update{Status: domain.StatusError, Message: "boom"})
	// Backdate the completion.
	r.mu.Lock()
	r.tasks[stale.ID].task.CompletedAt = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	fresh := r.Create("generic")
	r.Update(fresh.ID, domain.Update{Status: domain.StatusFinished})

	running := r.Create("generic")
	r.Update(running.ID, domain.Update{Status: domain.StatusDownloading})

	removed := r.Reap(time.Now().Add(-terminalGrace))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, r.Len())

	_, err := r.Get(stale.ID)
	var notFound *domain.TaskNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
