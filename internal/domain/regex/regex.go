// Package regex compiles and caches various regex expressions.
package regex

import (
	"regexp"
	"sync"
)

// Filenames
var (
	// ReservedChars matches characters unsafe in a filename.
	ReservedChars = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	})
	// ExtraSpaces matches runs of whitespace.
	ExtraSpaces = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`\s+`)
	})
)

// ffmpeg reports
var (
	// FFmpegDuration captures hours, minutes and seconds of the input duration banner.
	FFmpegDuration = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
	})
	SilenceStart = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`silence_start:\s*(-?\d+(?:\.\d+)?)`)
	})
	SilenceEnd = sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`silence_end:\s*(-?\d+(?:\.\d+)?)`)
	})
)
