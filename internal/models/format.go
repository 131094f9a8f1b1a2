// Package models holds the data types passed between mediadl components.
package models

// Format describes one encoding of a media item offered by the platform.
type Format struct {
	Itag          int    `json:"itag,omitempty"`
	URL           string `json:"url"`
	MimeType      string `json:"mimeType,omitempty"`
	Container     string `json:"container"`
	QualityLabel  string `json:"qualityLabel,omitempty"`
	HasVideo      bool   `json:"hasVideo"`
	HasAudio      bool   `json:"hasAudio"`
	Bitrate       int    `json:"bitrate,omitempty"`
	AudioBitrate  int    `json:"audioBitrate,omitempty"`
	AudioQuality  string `json:"audioQuality,omitempty"`
	ContentLength int64  `json:"contentLength,omitempty"`

	// Extension is the presentational extension set by the format selector.
	Extension string `json:"extension,omitempty"`
}

// AudioOnly reports whether the format carries no video track.
func (f Format) AudioOnly() bool {
	return !f.HasVideo
}
