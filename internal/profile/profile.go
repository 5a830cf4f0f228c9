// Package profile describes the supported target platforms: URL matching,
// display names, extraction options, and cookie material.
package profile

import (
	"regexp"
	"strings"

	"github.com/arjunmehra/streamfetch/internal/domain"
)

// Generic is the fallback profile used when no platform pattern matches.
const Generic = "generic"

// Spotify is the music-lookup profile, handled by a dedicated worker path.
const Spotify = "spotify"

type descriptor struct {
	tag      string
	display  string
	patterns []*regexp.Regexp
}

func pats(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// Detection order matters: the first profile whose pattern matches wins.
var profiles = []descriptor{
	{"ytdownload", "YouTube", pats(`youtube\.com`, `youtu\.be`)},
	{"zee5", "ZEE5", pats(`zee5\.com`)},
	{"hotstar", "Hotstar", pats(`hotstar\.com`)},
	{"sonyliv", "SonyLIV", pats(`sonyliv\.com`)},
	{"twitter", "Twitter", pats(`twitter\.com`, `x\.com`)},
	{"instagram", "Instagram", pats(`instagram\.com`)},
	{"reddit", "Reddit", pats(`reddit\.com`)},
	{Spotify, "Spotify", pats(`spotify\.com`, `open\.spotify\.com`)},
	{Generic, "", nil},
}

// Supported returns all profile tags in detection order.
func Supported() []string {
	tags := make([]string, len(profiles))
	for i, p := range profiles {
		tags[i] = p.tag
	}
	return tags
}

// IsSupported reports whether tag names a known profile.
func IsSupported(tag string) bool {
	for _, p := range profiles {
		if p.tag == tag {
			return true
		}
	}
	return false
}

// Detect resolves the effective profile for a URL. An explicit non-generic
// request wins; otherwise the first profile whose pattern matches the URL is
// chosen, falling back to generic.
func Detect(url, requested string) string {
	if url == "" {
		return Generic
	}
	if requested != "" && requested != Generic {
		return requested
	}
	for _, p := range profiles {
		if p.tag == Generic {
			continue
		}
		for _, re := range p.patterns {
			if re.MatchString(url) {
				return p.tag
			}
		}
	}
	return Generic
}

// Validate rejects a missing URL, an unknown profile tag, and a URL that does
// not match the requested non-generic profile.
func Validate(url, tag string) error {
	if url == "" {
		return &domain.ProfileMismatchError{URL: url, Profile: tag}
	}
	if !IsSupported(tag) {
		return &domain.InvalidProfileError{Profile: tag, Supported: Supported()}
	}
	if tag == Generic {
		return nil
	}
	for _, p := range profiles {
		if p.tag != tag {
			continue
		}
		for _, re := range p.patterns {
			if re.MatchString(url) {
				return nil
			}
		}
	}
	return &domain.ProfileMismatchError{URL: url, Profile: tag}
}

// DisplayName returns the filename tag for a profile, upper-cased tag for
// profiles without a fixed display name.
func DisplayName(tag string) string {
	for _, p := range profiles {
		if p.tag == tag && p.display != "" {
			return p.display
		}
	}
	return strings.ToUpper(tag)
}
