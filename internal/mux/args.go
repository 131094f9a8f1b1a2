package mux

import (
	"mediadl/internal/domain/consts"
)

// Mode selects the muxer pipeline.
type Mode int

const (
	// ModeVideo copies a video-only stream and mixes in an audio stream.
	ModeVideo Mode = iota
	// ModeAudio transcodes a single audio stream.
	ModeAudio
)

func (m Mode) String() string {
	if m == ModeAudio {
		return "audio"
	}
	return "video"
}

// roles returns the pipes wired for the mode, in descriptor order.
func (m Mode) roles() []PipeRole {
	if m == ModeAudio {
		return []PipeRole{PipeProgress, PipeAudioIn}
	}
	return []PipeRole{PipeProgress, PipeVideoIn, PipeAudioIn}
}

// baseArgs silence ffmpeg's console output and redirect progress reports.
func baseArgs(ps *pipeSet) []string {
	return []string{
		"-loglevel", consts.FFmpegLogLevel,
		"-hide_banner",
		"-nostdin",
		"-y",
		"-progress", ps.arg(PipeProgress),
	}
}

// buildArgs returns the muxer arguments for mode, ending with the output path.
func buildArgs(mode Mode, ps *pipeSet, output string) []string {
	args := baseArgs(ps)

	switch mode {
	case ModeAudio:
		args = append(args,
			"-i", ps.arg(PipeAudioIn),
			"-q:a", consts.AudioQualityBest,
			"-map", "a",
		)
	default:
		args = append(args,
			"-i", ps.arg(PipeVideoIn),
			"-i", ps.arg(PipeAudioIn),
			"-map", "0:v",
			"-map", "1:a",
			"-c:v", consts.VCodecCopy,
		)
	}
	return append(args, output)
}
