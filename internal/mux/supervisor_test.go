package mux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/errs"
	"mediadl/internal/models"
)

type memSource struct {
	data []byte
}

func (s *memSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(s.data)), int64(len(s.data)), nil
}

// gatedSource yields head, then blocks until release is closed before
// yielding tail. Closing the body unblocks a pending read.
type gatedSource struct {
	head, tail []byte
	release    chan struct{}
}

func (s *gatedSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	return &gatedReader{src: s, closed: make(chan struct{})}, int64(len(s.head) + len(s.tail)), nil
}

type gatedReader struct {
	src       *gatedSource
	pos       int
	closed    chan struct{}
	closeOnce sync.Once
}

func (r *gatedReader) Read(p []byte) (int, error) {
	if r.pos < len(r.src.head) {
		n := copy(p, r.src.head[r.pos:])
		r.pos += n
		return n, nil
	}
	select {
	case <-r.src.release:
	case <-r.closed:
		return 0, errors.New("connection closed")
	}
	off := r.pos - len(r.src.head)
	if off >= len(r.src.tail) {
		return 0, io.EOF
	}
	n := copy(p, r.src.tail[off:])
	r.pos += n
	return n, nil
}

func (r *gatedReader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

type recorder struct {
	mu         sync.Mutex
	events     []models.Progress
	transports []TransportKind
	notify     chan TransportKind

	// onTerminal runs inside the hook when a terminal snapshot arrives.
	onTerminal func(models.Progress)
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan TransportKind, 8)}
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		Progress: func(p models.Progress) {
			if r.onTerminal != nil && p.Status.IsTerminal() {
				r.onTerminal(p)
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, p)
		},
		Transport: func(k TransportKind) {
			r.mu.Lock()
			r.transports = append(r.transports, k)
			r.mu.Unlock()
			r.notify <- k
		},
	}
}

func (r *recorder) snapshot() ([]models.Progress, []TransportKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Progress(nil), r.events...), append([]TransportKind(nil), r.transports...)
}

func (r *recorder) waitFor(t *testing.T, want TransportKind) {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case k := <-r.notify:
			if k == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for transport %s", want)
		}
	}
}

func statuses(events []models.Progress) []consts.JobStatus {
	out := make([]consts.JobStatus, 0, len(events))
	for _, e := range events {
		out = append(out, e.Status)
	}
	return out
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSupervisorVideoFinishes(t *testing.T) {
	t.Parallel()

	cfg := helperConfig(t, "ok")
	rec := newRecorder()
	sup := New(cfg, Inputs{
		Title: "Concert",
		Mode:  ModeVideo,
		Video: &memSource{data: bytes.Repeat([]byte("v"), 100_000)},
		Audio: &memSource{data: bytes.Repeat([]byte("a"), 20_000)},
	}, rec.hooks())

	if err := sup.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	events, transports := rec.snapshot()
	if events[0].Status != consts.StatusStarting {
		t.Fatalf("first status = %s, want starting", events[0].Status)
	}
	last := events[len(events)-1]
	if last.Status != consts.StatusFinished {
		t.Fatalf("last status = %s, want finished (%v)", last.Status, statuses(events))
	}
	if last.Percent != 1 || last.Downloaded != 120_000 || last.Total != 120_000 {
		t.Fatalf("final progress = %+v", last)
	}
	if want := filepath.Join(cfg.OutputDir, "Concert.mp4"); last.OutputPath != want {
		t.Fatalf("output = %q, want %q", last.OutputPath, want)
	}
	if b, err := os.ReadFile(last.OutputPath); err != nil || string(b) != "muxed" {
		t.Fatalf("output content = %q, %v", b, err)
	}

	prev := 0.0
	for _, e := range events {
		if e.Percent < prev {
			t.Fatalf("percent went backwards: %v after %v", e.Percent, prev)
		}
		prev = e.Percent
	}

	if len(transports) != 2 || transports[0] != TransportVideo || transports[1] != TransportClosed {
		t.Fatalf("transports = %v", transports)
	}
}

func TestSupervisorFailureRemovesOutput(t *testing.T) {
	t.Parallel()

	cfg := helperConfig(t, "fail")
	rec := newRecorder()
	sup := New(cfg, Inputs{
		Title: "Song",
		Mode:  ModeAudio,
		Audio: &memSource{data: bytes.Repeat([]byte("a"), 10_000)},
	}, rec.hooks())

	err := sup.Run(context.Background())
	var subErr *errs.SubprocessError
	if !errors.As(err, &subErr) {
		t.Fatalf("Run() = %v, want SubprocessError", err)
	}
	if subErr.ExitCode != 1 {
		t.Fatalf("exit code = %d, want 1", subErr.ExitCode)
	}

	events, _ := rec.snapshot()
	last := events[len(events)-1]
	if last.Status != consts.StatusFailed || last.Error == "" {
		t.Fatalf("last progress = %+v", last)
	}
	if names := dirEntries(t, cfg.OutputDir); len(names) != 0 {
		t.Fatalf("output dir not cleaned: %v", names)
	}
}

func TestSupervisorStop(t *testing.T) {
	t.Parallel()

	cfg := helperConfig(t, "hang")
	rec := newRecorder()
	src := &gatedSource{head: []byte("head"), release: make(chan struct{})}
	sup := New(cfg, Inputs{Title: "Live", Mode: ModeAudio, Audio: src}, rec.hooks())

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background()) }()

	rec.waitFor(t, TransportAudio)
	sup.Stop()
	sup.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, errs.ErrCanceled) {
			t.Fatalf("Run() = %v, want ErrCanceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	events, _ := rec.snapshot()
	stopped := 0
	for _, e := range events {
		if e.Status == consts.StatusStopped {
			stopped++
			if e.Error != errs.CanceledMsg {
				t.Fatalf("stopped error = %q", e.Error)
			}
		}
		if e.Status == consts.StatusFinished {
			t.Fatal("stopped job reported finished")
		}
	}
	if stopped != 1 {
		t.Fatalf("stopped transitions = %d, want 1", stopped)
	}
	if names := dirEntries(t, cfg.OutputDir); len(names) != 0 {
		t.Fatalf("output dir not cleaned: %v", names)
	}

	sup.Stop()
	if after, _ := rec.snapshot(); len(after) != len(events) {
		t.Fatal("Stop after termination emitted events")
	}
}

func TestSupervisorStopBeforeRun(t *testing.T) {
	t.Parallel()

	cfg := helperConfig(t, "ok")
	rec := newRecorder()
	sup := New(cfg, Inputs{Title: "Never", Mode: ModeAudio, Audio: &memSource{}}, rec.hooks())

	sup.Stop()
	if err := sup.Run(context.Background()); !errors.Is(err, errs.ErrCanceled) {
		t.Fatalf("Run() = %v, want ErrCanceled", err)
	}

	events, _ := rec.snapshot()
	got := statuses(events)
	if len(got) != 2 || got[0] != consts.StatusStarting || got[1] != consts.StatusStopped {
		t.Fatalf("statuses = %v", got)
	}
	if names := dirEntries(t, cfg.OutputDir); len(names) != 0 {
		t.Fatalf("unexpected output: %v", names)
	}
}

func TestSupervisorPauseResume(t *testing.T) {
	t.Parallel()

	cfg := helperConfig(t, "ok")
	rec := newRecorder()
	src := &gatedSource{head: []byte("head"), tail: []byte("tail"), release: make(chan struct{})}
	sup := New(cfg, Inputs{Title: "Podcast", Mode: ModeAudio, Audio: src}, rec.hooks())

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background()) }()
	rec.waitFor(t, TransportAudio)

	if !sup.Pause() {
		t.Fatal("Pause() = false on an active job")
	}
	if sup.Pause() {
		t.Fatal("second Pause() changed state")
	}
	if sup.Status() != consts.StatusPaused {
		t.Fatalf("status = %s, want paused", sup.Status())
	}
	if !sup.Resume() {
		t.Fatal("Resume() = false on a paused job")
	}
	if sup.Resume() {
		t.Fatal("second Resume() changed state")
	}
	close(src.release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not finish")
	}

	if sup.Pause() || sup.Resume() {
		t.Fatal("controls should be no-ops after completion")
	}

	events, _ := rec.snapshot()
	var sawPaused bool
	for _, e := range events {
		if e.Status == consts.StatusPaused {
			sawPaused = true
		}
	}
	if !sawPaused {
		t.Fatalf("no paused event in %v", statuses(events))
	}
}

type fakeSegmenter struct {
	tracks int
	err    error
	input  string
}

func (f *fakeSegmenter) Split(ctx context.Context, input, outputDir string, p SplitParams) ([]string, error) {
	f.input = input
	if _, err := os.Stat(input); err != nil {
		return nil, err
	}
	var files []string
	for i := 1; i <= f.tracks; i++ {
		name := filepath.Join(outputDir, trackName(i, ".mp3"))
		if err := os.WriteFile(name, []byte("track"), 0o644); err != nil {
			return files, err
		}
		files = append(files, name)
	}
	return files, f.err
}

func TestSupervisorSplitTracks(t *testing.T) {
	t.Parallel()

	cfg := helperConfig(t, "ok")
	seg := &fakeSegmenter{tracks: 2}
	cfg.Segmenter = seg
	rec := newRecorder()
	sup := New(cfg, Inputs{
		Title:       "Album",
		Mode:        ModeAudio,
		Audio:       &memSource{data: bytes.Repeat([]byte("a"), 5_000)},
		SplitTracks: true,
	}, rec.hooks())

	if err := sup.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if want := filepath.Join(cfg.OutputDir, "Album-temp.mp3"); seg.input != want {
		t.Fatalf("segmenter input = %q, want %q", seg.input, want)
	}

	events, transports := rec.snapshot()
	got := statuses(events)
	if got[len(got)-2] != consts.StatusProcessing || got[len(got)-1] != consts.StatusFinished {
		t.Fatalf("statuses = %v", got)
	}
	last := events[len(events)-1]
	if want := filepath.Join(cfg.OutputDir, "Album"); last.OutputPath != want {
		t.Fatalf("output = %q, want %q", last.OutputPath, want)
	}
	if names := dirEntries(t, cfg.OutputDir); len(names) != 1 || names[0] != "Album" {
		t.Fatalf("output dir = %v, want only the track directory", names)
	}
	if names := dirEntries(t, last.OutputPath); len(names) != 2 {
		t.Fatalf("tracks = %v", names)
	}
	if transports[len(transports)-2] != TransportProcessing {
		t.Fatalf("transports = %v", transports)
	}

	// Controls are disabled once the job is finished.
	sup.Stop()
	if after, _ := rec.snapshot(); len(after) != len(events) {
		t.Fatal("Stop after completion emitted events")
	}
}

func TestSupervisorSplitFailureCleansUp(t *testing.T) {
	t.Parallel()

	cfg := helperConfig(t, "ok")
	cfg.Segmenter = &fakeSegmenter{tracks: 1, err: errors.New("no silence found")}
	rec := newRecorder()
	sup := New(cfg, Inputs{
		Title:       "Mix",
		Mode:        ModeAudio,
		Audio:       &memSource{data: []byte("audio")},
		SplitTracks: true,
	}, rec.hooks())

	err := sup.Run(context.Background())
	var ppErr *errs.PostProcessingError
	if !errors.As(err, &ppErr) {
		t.Fatalf("Run() = %v, want PostProcessingError", err)
	}
	if names := dirEntries(t, cfg.OutputDir); len(names) != 0 {
		t.Fatalf("output dir not cleaned: %v", names)
	}
}

// leftoversAtTerminal records which of the given files still exist when the
// terminal snapshot is published.
func leftoversAtTerminal(rec *recorder, paths ...string) func() []string {
	var (
		mu    sync.Mutex
		found []string
	)
	rec.onTerminal = func(models.Progress) {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				found = append(found, filepath.Base(p))
			}
		}
	}
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return found
	}
}

func TestSupervisorSplitRemovesFilesBeforeTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		segErr  error
		wantErr bool
	}{
		{name: "finished"},
		{name: "failed", segErr: errors.New("no silence found"), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := helperConfig(t, "ok")
			cfg.Segmenter = &fakeSegmenter{tracks: 2, err: tt.segErr}
			rec := newRecorder()
			leftovers := leftoversAtTerminal(rec,
				filepath.Join(cfg.OutputDir, "Album-temp.mp3"),
				filepath.Join(cfg.OutputDir, "Album.mp3"))

			sup := New(cfg, Inputs{
				Title:       "Album",
				Mode:        ModeAudio,
				Audio:       &memSource{data: []byte("audio")},
				SplitTracks: true,
			}, rec.hooks())

			if err := sup.Run(context.Background()); (err != nil) != tt.wantErr {
				t.Fatalf("Run() = %v, wantErr %v", err, tt.wantErr)
			}
			if got := leftovers(); len(got) != 0 {
				t.Fatalf("files present when the terminal status was published: %v", got)
			}
		})
	}
}

func TestSupervisorMissingBinary(t *testing.T) {
	t.Parallel()

	cfg := Config{
		FFmpegPath: filepath.Join(t.TempDir(), "no-such-ffmpeg"),
		OutputDir:  t.TempDir(),
	}
	rec := newRecorder()
	sup := New(cfg, Inputs{Title: "x", Mode: ModeAudio, Audio: &memSource{}}, rec.hooks())

	err := sup.Run(context.Background())
	var subErr *errs.SubprocessError
	if !errors.As(err, &subErr) {
		t.Fatalf("Run() = %v, want SubprocessError", err)
	}
	if names := dirEntries(t, cfg.OutputDir); len(names) != 0 {
		t.Fatalf("reserved output not removed: %v", names)
	}
}
