package models

// Request is a download submitted to the queue.
type Request struct {
	// ID is the source media item's identifier and the job key.
	ID    string `json:"id"`
	Title string `json:"title"`

	// Format is the selected encoding. Video formats are muxed with Companion.
	Format    Format  `json:"format"`
	Companion *Format `json:"companion,omitempty"`

	// SplitTracks segments an audio-only download on silence.
	SplitTracks bool `json:"splitTracks,omitempty"`
}

// AudioOnly reports whether the request produces an audio file.
func (r *Request) AudioOnly() bool {
	return r.Format.AudioOnly()
}
