package domain

import "time"

// Status represents the states a download task can be in.
type Status string

const (
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
)

// IsTerminal returns true if no further state transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusError
}

// Task is the full state of one download job. It is owned by the registry
// for its lifetime: written only by the worker that runs the job, read by
// the progress relay and status endpoints. The JSON shape is what clients
// see on the SSE stream and status responses.
type Task struct {
	ID          string  `json:"-"`
	Status      Status  `json:"status"`
	Progress    float64 `json:"progress"`
	Message     string  `json:"message,omitempty"`
	Speed       string  `json:"speed,omitempty"`
	ETA         string  `json:"eta,omitempty"`
	Filename    string  `json:"filename,omitempty"`
	DownloadURL string  `json:"download_url,omitempty"`
	Model       string  `json:"model,omitempty"`

	CreatedAt   time.Time `json:"-"`
	CompletedAt time.Time `json:"-"`
}

// Update is a partial task state. Nil/empty fields are "not given" and leave
// the stored value untouched; given fields win last-write. The same partial
// is forwarded verbatim to the task's event channel.
type Update struct {
	Status      Status   `json:"status,omitempty"`
	Progress    *float64 `json:"progress,omitempty"`
	Message     string   `json:"message,omitempty"`
	Speed       string   `json:"speed,omitempty"`
	ETA         string   `json:"eta,omitempty"`
	Filename    string   `json:"filename,omitempty"`
	DownloadURL string   `json:"download_url,omitempty"`
}

// Float64 returns a pointer to v, for Update.Progress.
func Float64(v float64) *float64 { return &v }

// Apply merges the given fields of u into t.
func (t *Task) Apply(u Update) {
	if u.Status != "" {
		t.Status = u.Status
		if u.Status.IsTerminal() && t.CompletedAt.IsZero() {
			t.CompletedAt = time.Now().UTC()
		}
	}
	if u.Progress != nil {
		t.Progress = *u.Progress
	}
	if u.Message != "" {
		t.Message = u.Message
	}
	if u.Speed != "" {
		t.Speed = u.Speed
	}
	if u.ETA != "" {
		t.ETA = u.ETA
	}
	if u.Filename != "" {
		t.Filename = u.Filename
	}
	if u.DownloadURL != "" {
		t.DownloadURL = u.DownloadURL
	}
}
