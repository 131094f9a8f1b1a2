package consts

// FFmpeg invocation values.
const (
	FFmpegBinary   = "ffmpeg"
	FFmpegLogLevel = "8"

	// Codec copy keeps video muxing I/O bound.
	VCodecCopy = "copy"
	// Highest VBR quality for audio transcodes.
	AudioQualityBest = "0"
)

// Silence segmentation parameters for split tracks.
const (
	SplitMinSilenceSeconds = 0.01
	SplitNoiseFloorDB      = -40
	SplitMinSegmentSeconds = 40.0
)
