package mux

import (
	"reflect"
	"testing"
)

func TestComputeSegments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration float64
		silences []Silence
		want     []Segment
	}{
		{
			name:     "no silence",
			duration: 300,
			want:     []Segment{{0, 300}},
		},
		{
			name:     "cuts at midpoints",
			duration: 300,
			silences: []Silence{{Start: 99, End: 101}, {Start: 199, End: 201}},
			want:     []Segment{{0, 100}, {100, 200}, {200, 300}},
		},
		{
			name:     "short segment merges into previous",
			duration: 230,
			silences: []Silence{{Start: 99, End: 101}, {Start: 209, End: 211}},
			want:     []Segment{{0, 100}, {100, 230}},
		},
		{
			name:     "short leading segment absorbs next",
			duration: 200,
			silences: []Silence{{Start: 9, End: 11}},
			want:     []Segment{{0, 200}},
		},
		{
			name:     "silence at edges ignored",
			duration: 120,
			silences: []Silence{{Start: 0, End: 0}, {Start: 120, End: 121}},
			want:     []Segment{{0, 120}},
		},
		{
			name:     "zero duration",
			duration: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSegments(tt.duration, tt.silences, 40)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSilenceReport(t *testing.T) {
	t.Parallel()

	out := []byte(`Input #0, mp3, from 'album-temp.mp3':
  Duration: 00:05:03.50, start: 0.025057, bitrate: 128 kb/s
[silencedetect @ 0x1] silence_start: 99.5
[silencedetect @ 0x1] silence_end: 100.5 | silence_duration: 1
[silencedetect @ 0x1] silence_start: -0.01
[silencedetect @ 0x1] silence_end: 0.2 | silence_duration: 0.21
[silencedetect @ 0x1] silence_start: 300
`)

	d, ok := parseDuration(out)
	if !ok || d != 303.5 {
		t.Fatalf("duration = %v, %v; want 303.5", d, ok)
	}

	got := parseSilences(out)
	want := []Silence{{Start: 99.5, End: 100.5}, {Start: 0, End: 0.2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("silences = %v, want %v", got, want)
	}
}

func TestTrackName(t *testing.T) {
	t.Parallel()

	if got := trackName(3, ".mp3"); got != "Track 03.mp3" {
		t.Fatalf("trackName = %q", got)
	}
}
