package musiclookup

import (
	"encoding/json"
	"errors"
	"strings"
)

// Resolved is the usable outcome of a lookup call.
type Resolved struct {
	Link   string
	Title  string
	Artist string
	Album  string
	Cover  string
}

// ErrNoLink is returned when no extractor could find a playable link.
var ErrNoLink = errors.New("API did not return a valid link")

// The lookup API's response shape is not contractually fixed. Decode probes a
// strict, ordered chain of known shapes and takes the first one that yields a
// link; the flat shape doubles as the final fallback.
func Decode(raw []byte) (Resolved, error) {
	for _, extract := range []func([]byte) (Resolved, bool){
		decodeTrackInfo,
		decodeDataWrapper,
		decodeFlat,
	} {
		if r, ok := extract(raw); ok {
			return r, nil
		}
	}
	return Resolved{}, ErrNoLink
}

// trackInfoShape: link at top level, rich metadata under "track_info".
type trackInfoShape struct {
	DownloadURL string `json:"download_url"`
	Link        string `json:"link"`
	URL         string `json:"url"`
	TrackInfo   *struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name   string `json:"name"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"album"`
	} `json:"track_info"`
}

func decodeTrackInfo(raw []byte) (Resolved, bool) {
	var s trackInfoShape
	if err := json.Unmarshal(raw, &s); err != nil || s.TrackInfo == nil {
		return Resolved{}, false
	}
	link := firstNonEmpty(s.DownloadURL, s.Link, s.URL)
	if link == "" {
		return Resolved{}, false
	}

	names := make([]string, 0, len(s.TrackInfo.Artists))
	for _, a := range s.TrackInfo.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}

	r := Resolved{
		Link:   link,
		Title:  s.TrackInfo.Name,
		Artist: strings.Join(names, ", "),
		Album:  s.TrackInfo.Album.Name,
	}
	if len(s.TrackInfo.Album.Images) > 0 {
		r.Cover = s.TrackInfo.Album.Images[0].URL
	}
	if r.Title == "" {
		r.Title = defaultTitle
	}
	return r, true
}

// flatShape: everything at one level; also used under a "data" wrapper.
type flatShape struct {
	DownloadURL string          `json:"download_url"`
	Link        string          `json:"link"`
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	Name        string          `json:"name"`
	Artist      json.RawMessage `json:"artist"`
	Artists     json.RawMessage `json:"artists"`
	Album       string          `json:"album"`
	Cover       string          `json:"cover"`
	Image       string          `json:"image"`
	Thumbnail   string          `json:"thumbnail"`
}

func decodeDataWrapper(raw []byte) (Resolved, bool) {
	var outer struct {
		DownloadURL string          `json:"download_url"`
		Link        string          `json:"link"`
		URL         string          `json:"url"`
		Data        json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil || len(outer.Data) == 0 || string(outer.Data) == "null" {
		return Resolved{}, false
	}
	r, ok := decodeFlat(outer.Data)
	if !ok {
		// The wrapper itself may hold the link with metadata inside "data".
		if link := firstNonEmpty(outer.DownloadURL, outer.Link, outer.URL); link != "" {
			inner, _ := flatFields(outer.Data)
			inner.Link = link
			return inner, true
		}
		return Resolved{}, false
	}
	return r, true
}

func decodeFlat(raw []byte) (Resolved, bool) {
	r, err := flatFields(raw)
	if err != nil || r.Link == "" {
		return Resolved{}, false
	}
	return r, true
}

func flatFields(raw []byte) (Resolved, error) {
	var s flatShape
	if err := json.Unmarshal(raw, &s); err != nil {
		return Resolved{}, err
	}
	r := Resolved{
		Link:   firstNonEmpty(s.DownloadURL, s.Link, s.URL),
		Title:  firstNonEmpty(s.Title, s.Name, defaultTitle),
		Artist: decodeArtist(s.Artist, s.Artists),
		Album:  s.Album,
		Cover:  firstNonEmpty(s.Cover, s.Image, s.Thumbnail),
	}
	return r, nil
}

// decodeArtist accepts a plain string or a list of strings under either key.
func decodeArtist(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil && single != "" {
			return single
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return strings.Join(list, ", ")
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
