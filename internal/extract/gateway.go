// Package extract defines the contract with the external media extraction
// collaborator and provides the yt-dlp subprocess implementation. The
// extractor itself is not reimplemented here; this package only drives it.
package extract

import (
	"context"

	"github.com/arjunmehra/streamfetch/internal/domain"
)

// Options configures a single gateway call. It is built per site profile.
type Options struct {
	// HTTPHeaders are sent with every upstream request.
	HTTPHeaders map[string]string
	// CookieFile is a Netscape-format cookie file path, empty for none.
	CookieFile string
	// FormatSelector is the extractor's format expression ("137+140", "best").
	FormatSelector string
	// OutputTemplate is the staging output path template for Fetch.
	OutputTemplate string
	// MergeOutputFormat forces the merged container ("mp4"), empty for default.
	MergeOutputFormat string
	// GeoBypass enables the extractor's geo-restriction workarounds.
	GeoBypass bool
	// GeoBypassCountry is the two-letter country hint for GeoBypass.
	GeoBypassCountry string
	// PlayerClients overrides the extractor's player client list (youtube).
	PlayerClients []string
	// ExtractorArgs are raw extractor-specific arguments ("hotstar:min_timestamp=0").
	ExtractorArgs []string
	// ConcurrentFragments caps per-fragment download concurrency, 0 for default.
	ConcurrentFragments int
}

// Metadata is the result of a metadata-only probe.
type Metadata struct {
	Title     string                 `json:"title"`
	Thumbnail string                 `json:"thumbnail"`
	Duration  float64                `json:"duration"`
	Series    string                 `json:"series"`
	Season    *int                   `json:"season_number"`
	Episode   *int                   `json:"episode_number"`
	Formats   []domain.StreamVariant `json:"formats"`
}

// Progress is one decoded progress callback payload. Speed and ETA are the
// extractor's human-readable strings with terminal control sequences removed.
type Progress struct {
	Percent float64
	Speed   string
	ETA     string
}

// Gateway is the extraction collaborator: probe metadata, or materialize a
// chosen variant to a local file while reporting progress.
type Gateway interface {
	Probe(ctx context.Context, url string, opts Options) (*Metadata, error)
	Fetch(ctx context.Context, url string, opts Options, onProgress func(Progress)) error
}
