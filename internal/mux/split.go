package mux

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"

	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/regex"
	"mediadl/internal/utils/logging"
)

// SplitParams tune silence detection for split tracks.
type SplitParams struct {
	MinSilence   float64 // seconds
	NoiseFloorDB float64
	MinSegment   float64 // seconds
}

// DefaultSplitParams returns the split-tracks defaults.
func DefaultSplitParams() SplitParams {
	return SplitParams{
		MinSilence:   consts.SplitMinSilenceSeconds,
		NoiseFloorDB: consts.SplitNoiseFloorDB,
		MinSegment:   consts.SplitMinSegmentSeconds,
	}
}

// Segmenter splits one audio file into per-track files inside outputDir.
type Segmenter interface {
	Split(ctx context.Context, input, outputDir string, p SplitParams) ([]string, error)
}

// Segment is a span of the input, in seconds.
type Segment struct {
	Start float64
	End   float64
}

// Silence is a detected quiet span, in seconds.
type Silence struct {
	Start float64
	End   float64
}

// FFmpegSegmenter detects silences with ffmpeg's silencedetect filter and
// cuts the input at their midpoints.
type FFmpegSegmenter struct {
	FFmpegPath string
	// PrefixArgs are placed before the generated arguments.
	PrefixArgs []string
	Env        []string
}

// Split implements Segmenter.
func (s *FFmpegSegmenter) Split(ctx context.Context, input, outputDir string, p SplitParams) ([]string, error) {
	filter := fmt.Sprintf("silencedetect=noise=%gdB:d=%g", p.NoiseFloorDB, p.MinSilence)
	out, err := s.run(ctx, "-hide_banner", "-nostdin", "-i", input, "-af", filter, "-f", "null", "-")
	if err != nil {
		return nil, fmt.Errorf("silence detection failed: %w", err)
	}

	duration, ok := parseDuration(out)
	if !ok {
		return nil, fmt.Errorf("could not read duration of %q", input)
	}
	segments := ComputeSegments(duration, parseSilences(out), p.MinSegment)
	logging.D(1, "Splitting %q into %d tracks", input, len(segments))

	files := make([]string, 0, len(segments))
	for i, seg := range segments {
		dst := filepath.Join(outputDir, trackName(i+1, filepath.Ext(input)))
		if _, err := s.run(ctx,
			"-loglevel", consts.FFmpegLogLevel, "-hide_banner", "-nostdin", "-y",
			"-i", input,
			"-ss", formatSeconds(seg.Start),
			"-to", formatSeconds(seg.End),
			"-c", "copy",
			dst,
		); err != nil {
			return files, fmt.Errorf("failed to cut track %d: %w", i+1, err)
		}
		files = append(files, dst)
	}
	return files, nil
}

func (s *FFmpegSegmenter) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.FFmpegPath, append(append([]string{}, s.PrefixArgs...), args...)...)
	if len(s.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stderr.Bytes(), fmt.Errorf("%w: %s", err, lastLine(stderr.Bytes()))
	}
	return stderr.Bytes(), nil
}

// ComputeSegments cuts [0, duration) at the midpoint of every silence and
// merges segments shorter than minSegment into their predecessor.
func ComputeSegments(duration float64, silences []Silence, minSegment float64) []Segment {
	if duration <= 0 {
		return nil
	}

	var cuts []float64
	for _, s := range silences {
		mid := (s.Start + s.End) / 2
		if mid > 0 && mid < duration {
			cuts = append(cuts, mid)
		}
	}

	var segments []Segment
	start := 0.0
	for _, c := range append(cuts, duration) {
		if c <= start {
			continue
		}
		seg := Segment{Start: start, End: c}
		if n := len(segments); n > 0 && seg.End-seg.Start < minSegment {
			segments[n-1].End = seg.End
		} else if n > 0 && segments[n-1].End-segments[n-1].Start < minSegment {
			segments[n-1].End = seg.End
		} else {
			segments = append(segments, seg)
		}
		start = c
	}
	return segments
}

func parseDuration(out []byte) (float64, bool) {
	m := regex.FFmpegDuration().FindSubmatch(out)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.ParseFloat(string(m[1]), 64)
	mins, _ := strconv.ParseFloat(string(m[2]), 64)
	sec, _ := strconv.ParseFloat(string(m[3]), 64)
	return h*3600 + mins*60 + sec, true
}

// parseSilences pairs silence_start/silence_end reports in order.
// A trailing unterminated silence is dropped.
func parseSilences(out []byte) []Silence {
	starts := regex.SilenceStart().FindAllSubmatch(out, -1)
	ends := regex.SilenceEnd().FindAllSubmatch(out, -1)

	n := min(len(starts), len(ends))
	silences := make([]Silence, 0, n)
	for i := 0; i < n; i++ {
		s, _ := strconv.ParseFloat(string(starts[i][1]), 64)
		e, _ := strconv.ParseFloat(string(ends[i][1]), 64)
		if s < 0 {
			s = 0
		}
		silences = append(silences, Silence{Start: s, End: e})
	}
	return silences
}

func trackName(n int, ext string) string {
	return fmt.Sprintf("Track %02d%s", n, ext)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}
