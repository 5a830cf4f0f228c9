package domain

// StreamVariant is one raw stream descriptor as reported by the extraction
// gateway for a single media item. Field names follow the extractor's JSON
// output. A codec value of "none" (or empty) means the track is absent.
type StreamVariant struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	Height     int     `json:"height"`
	Width      int     `json:"width"`
	Rows       int     `json:"rows"`
	Resolution string  `json:"resolution"`
	TBR        float64 `json:"tbr"`
	ABR        float64 `json:"abr"`
	FPS        float64 `json:"fps"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	Language   string  `json:"language"`
	FormatNote string  `json:"format_note"`
}

// HasVideoCodec reports whether the variant declares a video track.
func (v StreamVariant) HasVideoCodec() bool {
	return v.VCodec != "" && v.VCodec != "none"
}

// HasAudioCodec reports whether the variant declares an audio track.
func (v StreamVariant) HasAudioCodec() bool {
	return v.ACodec != "" && v.ACodec != "none"
}
