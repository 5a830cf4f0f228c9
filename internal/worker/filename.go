package worker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arjunmehra/streamfetch/internal/extract"
	"github.com/arjunmehra/streamfetch/internal/profile"
)

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|#%]`)

// SanitizeFilename strips characters that are unsafe in file names or in
// /file/ URLs and trims surrounding whitespace.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(name, ""))
}

// FormatFilename derives the published artifact name (without extension)
// from probed metadata. Episodic content gets "Series - SxxEyy - Title",
// everything else just the title, followed by the site tag.
func FormatFilename(meta *extract.Metadata, tag string) string {
	title := meta.Title
	if title == "" {
		title = "Unknown"
	}

	base := title
	if meta.Series != "" && meta.Season != nil && meta.Episode != nil {
		base = fmt.Sprintf("%s - S%02dE%02d - %s", meta.Series, *meta.Season, *meta.Episode, title)
	}

	return SanitizeFilename(fmt.Sprintf("%s [%s] WEB-DL", base, profile.DisplayName(tag)))
}
