// Package consts holds various global, unchanging values.
package consts

// JobStatus is the lifecycle state of a download job.
type JobStatus string

const (
	StatusQueue       JobStatus = "queue"
	StatusStarting    JobStatus = "starting"
	StatusDownloading JobStatus = "downloading"
	StatusProcessing  JobStatus = "processing"
	StatusPaused      JobStatus = "paused"
	StatusStopped     JobStatus = "stopped"
	StatusFinished    JobStatus = "finished"
	StatusFailed      JobStatus = "failed"
)

// String returns the status as a string.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is absorbing (finished, stopped or failed).
func (s JobStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusStopped || s == StatusFailed
}

// IsActive reports whether a job in this status occupies an admission slot.
func (s JobStatus) IsActive() bool {
	return s != StatusQueue && s != "" && !s.IsTerminal()
}

// Default output names when a title is missing.
const (
	FallbackVideoName = "video"
	FallbackAudioName = "audio"
)

// Output containers.
const (
	ExtMP4 = "mp4"
	ExtMP3 = "mp3"
)

// TempSuffix is appended to a merged track while it is being split.
const TempSuffix = "-temp"

// MaxPathProbes bounds the "name (N).ext" collision search.
const MaxPathProbes = 1000

// DefaultConcurrency is the number of jobs allowed to run at once.
const DefaultConcurrency = 3

// Audio quality tiers reported by the platform, lowest first.
var AudioQualityRank = map[string]int{
	"AUDIO_QUALITY_LOW":    1,
	"AUDIO_QUALITY_MEDIUM": 2,
	"AUDIO_QUALITY_HIGH":   3,
}
