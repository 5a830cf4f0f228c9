// Package formats turns raw stream-variant descriptors into deduplicated,
// sorted, human-labeled option lists for clients to pick from.
package formats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/arjunmehra/streamfetch/internal/domain"
)

// videoContainers are extensions treated as video-capable: a variant in one
// of these with an audio track is assumed to be a muxed stream even when the
// upstream metadata omits the video codec (common with OTT extractors).
var videoContainers = map[string]bool{
	"mp4":  true,
	"mkv":  true,
	"webm": true,
	"ts":   true,
}

// languageNames maps the extractor's 3-letter language codes to display names.
var languageNames = map[string]string{
	"hin": "Hindi",
	"mal": "Malayalam",
	"tam": "Tamil",
	"tel": "Telugu",
	"kan": "Kannada",
	"ben": "Bengali",
	"mar": "Marathi",
	"guj": "Gujarati",
	"pan": "Punjabi",
	"eng": "English",
	"jap": "Japanese",
}

// FormatOption is a display-ready video variant.
type FormatOption struct {
	ID         string  `json:"id"`
	Resolution string  `json:"resolution"`
	Label      string  `json:"label"`
	Ext        string  `json:"ext"`
	TBR        float64 `json:"tbr"`
	Height     int     `json:"height"`
}

// AudioOption is a display-ready audio-only variant.
type AudioOption struct {
	ID       string  `json:"id"`
	Language string  `json:"language"`
	Bitrate  float64 `json:"bitrate"`
	Ext      string  `json:"ext"`
	Label    string  `json:"label"`
}

// ClassifyVideo returns all video-bearing variants, deduplicated by format id
// (first occurrence wins), labeled, and sorted by (height, bitrate) descending.
func ClassifyVideo(variants []domain.StreamVariant) []FormatOption {
	options := []FormatOption{}
	seen := make(map[string]bool)

	for _, v := range variants {
		hasVideo := v.HasVideoCodec() ||
			v.Width > 0 || v.Height > 0 ||
			(videoContainers[v.Ext] && v.HasAudioCodec())
		if !hasVideo {
			continue
		}
		if seen[v.FormatID] {
			continue
		}
		seen[v.FormatID] = true

		height := displayHeight(v)

		parts := []string{}
		resolution := "Unknown"
		if height > 0 {
			parts = append(parts, fmt.Sprintf("%dp", height))
			resolution = fmt.Sprintf("%dp", height)
		} else {
			parts = append(parts, "Unknown Resolution")
		}
		if v.Ext != "" {
			parts = append(parts, "("+v.Ext+")")
		}
		if v.FPS > 0 {
			parts = append(parts, formatFloat(v.FPS)+"fps")
		}
		if v.TBR > 0 {
			parts = append(parts, fmt.Sprintf("%dkbps", int(v.TBR)))
		}
		if v.HasAudioCodec() {
			parts = append(parts, "[Video+Audio]")
		} else {
			parts = append(parts, "[Video Only]")
		}
		if v.FormatNote != "" {
			parts = append(parts, v.FormatNote)
		}

		options = append(options, FormatOption{
			ID:         v.FormatID,
			Resolution: resolution,
			Label:      strings.Join(parts, " - "),
			Ext:        v.Ext,
			TBR:        v.TBR,
			Height:     height,
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Height != options[j].Height {
			return options[i].Height > options[j].Height
		}
		return options[i].TBR > options[j].TBR
	})
	return options
}

// ClassifyAudio returns all audio-only variants (audio codec declared, no
// video codec), deduplicated by format id, sorted by display language
// ascending then bitrate descending.
func ClassifyAudio(variants []domain.StreamVariant) []AudioOption {
	options := []AudioOption{}
	seen := make(map[string]bool)

	for _, v := range variants {
		if !v.HasAudioCodec() || v.HasVideoCodec() {
			continue
		}
		if seen[v.FormatID] {
			continue
		}
		seen[v.FormatID] = true

		lang := languageNames[v.Language]
		if lang == "" {
			lang = "Unknown"
		}

		var label string
		if v.ABR > 0 {
			label = fmt.Sprintf("%s (%dkbps - %s)", lang, int(v.ABR), v.Ext)
		} else {
			label = fmt.Sprintf("%s (%s)", lang, v.Ext)
		}
		if v.FormatNote != "" {
			label += " [" + v.FormatNote + "]"
		}

		options = append(options, AudioOption{
			ID:       v.FormatID,
			Language: lang,
			Bitrate:  v.ABR,
			Ext:      v.Ext,
			Label:    label,
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Language != options[j].Language {
			return options[i].Language < options[j].Language
		}
		return options[i].Bitrate > options[j].Bitrate
	})
	return options
}

// displayHeight derives a height for labeling: explicit height or rows field,
// else the "WxH" resolution string, else 0.
func displayHeight(v domain.StreamVariant) int {
	if v.Height > 0 {
		return v.Height
	}
	if v.Rows > 0 {
		return v.Rows
	}
	if idx := strings.Index(v.Resolution, "x"); idx >= 0 {
		if h, err := strconv.Atoi(strings.TrimSpace(v.Resolution[idx+1:])); err == nil {
			return h
		}
	}
	return 0
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
