// Package mux runs one ffmpeg process per job and feeds it from stream pullers.
package mux

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/errs"
	"mediadl/internal/models"
	"mediadl/internal/stream"
	"mediadl/internal/utils/fs"
	"mediadl/internal/utils/logging"
)

// TransportKind identifies what currently carries a job's bytes.
type TransportKind int

const (
	TransportNone TransportKind = iota
	TransportVideo
	TransportAudio
	TransportProcessing
	TransportClosed
)

func (k TransportKind) String() string {
	switch k {
	case TransportVideo:
		return "video"
	case TransportAudio:
		return "audio"
	case TransportProcessing:
		return "processing"
	case TransportClosed:
		return "closed"
	default:
		return "none"
	}
}

// Config holds process-wide supervisor settings.
type Config struct {
	FFmpegPath string
	// PrefixArgs are placed before the generated ffmpeg arguments.
	PrefixArgs []string
	// Env is appended to the inherited environment of the child.
	Env       []string
	OutputDir string
	Segmenter Segmenter
	Split     SplitParams
	// WaitDelay bounds how long an interrupted child may take to exit
	// before it is killed.
	WaitDelay time.Duration
	Now       func() time.Time
}

// Inputs describes one job's streams.
type Inputs struct {
	Title       string
	Mode        Mode
	Video       stream.Source // ModeVideo only
	Audio       stream.Source
	SplitTracks bool // ModeAudio only
}

// Hooks receive supervisor events. Calls are serialized per supervisor.
type Hooks struct {
	Progress  func(models.Progress)
	Transport func(TransportKind)
}

// Supervisor owns one ffmpeg process and the pullers feeding it.
type Supervisor struct {
	cfg   Config
	in    Inputs
	hooks Hooks

	mu       sync.Mutex
	status   consts.JobStatus
	percent  float64
	last     aggregate
	started  time.Time
	output   string
	pullers  []*stream.Puller
	cancel   context.CancelCauseFunc
	stopping bool
	failErr  error
	ran      bool
}

// New returns a supervisor for one job. Nothing runs until Run.
func New(cfg Config, in Inputs, hooks Hooks) *Supervisor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = consts.InterruptWaitDelay
	}
	if cfg.Split == (SplitParams{}) {
		cfg.Split = DefaultSplitParams()
	}
	if cfg.Segmenter == nil {
		cfg.Segmenter = &FFmpegSegmenter{FFmpegPath: cfg.FFmpegPath, PrefixArgs: cfg.PrefixArgs, Env: cfg.Env}
	}
	return &Supervisor{
		cfg:    cfg,
		in:     in,
		hooks:  hooks,
		status: consts.StatusQueue,
		last:   aggregate{Total: models.UnknownTotal},
	}
}

// Run drives the job to a terminal state and returns its error, if any.
//
// A stopped job returns errs.ErrCanceled.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return errors.New("supervisor already ran")
	}
	s.ran = true
	s.cancel = cancel
	s.started = s.cfg.Now()
	s.setStatusLocked(consts.StatusStarting)
	stopping := s.stopping
	s.mu.Unlock()

	if stopping {
		return s.finishStopped()
	}

	output, err := s.resolveOutput()
	if err != nil {
		return s.finishFailed(err)
	}

	waitErr, err := s.transfer(runCtx, output)
	if err == nil && waitErr == nil {
		s.mu.Lock()
		stopping = s.stopping
		s.mu.Unlock()
		if stopping {
			return s.finishStopped()
		}
		if s.in.Mode == ModeAudio && s.in.SplitTracks {
			return s.splitTracks(ctx, output)
		}
		return s.finishSucceeded(output)
	}

	s.mu.Lock()
	stopping = s.stopping
	s.mu.Unlock()
	switch {
	case stopping:
		return s.finishStopped()
	case err != nil:
		return s.finishFailed(err)
	default:
		return s.finishFailed(waitErr)
	}
}

// resolveOutput reserves the destination file before the child is spawned.
func (s *Supervisor) resolveOutput() (string, error) {
	fallback, ext := consts.FallbackVideoName, consts.ExtMP4
	if s.in.Mode == ModeAudio {
		fallback, ext = consts.FallbackAudioName, consts.ExtMP3
	}
	output, err := fs.Resolve(s.cfg.OutputDir, fs.NormalizeName(s.in.Title, fallback), ext)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.output = output
	s.mu.Unlock()

	logging.D(1, "Resolved output path %q", output)
	return output, nil
}

// transfer spawns ffmpeg, attaches the pullers and waits for everything to
// exit. err is the first puller or setup failure; waitErr is the child's.
func (s *Supervisor) transfer(ctx context.Context, output string) (waitErr, err error) {
	pipes, err := newPipeSet(s.in.Mode.roles()...)
	if err != nil {
		return nil, &errs.ResourceError{Path: output, Err: err}
	}

	args := append(append([]string{}, s.cfg.PrefixArgs...), buildArgs(s.in.Mode, pipes, output)...)
	cmd := exec.CommandContext(ctx, s.cfg.FFmpegPath, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = s.cfg.WaitDelay
	cmd.ExtraFiles = pipes.child
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.cfg.Env...)
	}
	stderr := &tailWriter{max: 4096}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.MultiWriter(stderr, debugWriter{prefix: "ffmpeg: "})

	logging.D(2, "Running %s %s", s.cfg.FFmpegPath, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		pipes.closeAll()
		return nil, &errs.SubprocessError{ExitCode: -1, Err: err}
	}
	pipes.closeChild()

	pullers, writers := s.attach(pipes)

	var (
		wg       sync.WaitGroup
		firstErr error
		errOnce  sync.Once
		reaped   atomic.Bool
	)
	fail := func(e error) {
		if reaped.Load() && errors.Is(e, errs.ErrCanceled) {
			return
		}
		errOnce.Do(func() {
			firstErr = e
			s.mu.Lock()
			s.failErr = e
			s.mu.Unlock()
		})
		s.cancelRun(e)
	}

	for i, p := range pullers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer writers[i].Close()
			if err := p.Run(ctx, writers[i]); err != nil {
				fail(err)
			}
		}()
	}

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		progress := pipes.parentEnd(PipeProgress)
		defer progress.Close()
		if err := readProgress(progress, s.onBlock); err != nil {
			logging.D(2, "Progress pipe closed: %v", err)
		}
	}()

	waitErr = cmd.Wait()
	reaped.Store(true)

	// A child that exits early leaves pullers blocked on the network.
	for _, p := range pullers {
		p.Stop()
	}
	wg.Wait()
	<-progressDone

	// Network failures caused the exit; anything else is reported as the
	// child's own failure.
	var transportErr *errs.TransportError
	if firstErr != nil && (waitErr == nil || errors.As(firstErr, &transportErr) || errors.Is(firstErr, errs.ErrCanceled)) {
		return waitErr, firstErr
	}
	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		msg := stderr.String()
		if msg == "" {
			msg = waitErr.Error()
		}
		return &errs.SubprocessError{ExitCode: code, Err: errors.New(msg)}, nil
	}
	return nil, nil
}

// attach builds the pullers for the job and publishes the active transport.
func (s *Supervisor) attach(pipes *pipeSet) ([]*stream.Puller, []*os.File) {
	var (
		pullers []*stream.Puller
		writers []*os.File
		kind    = TransportAudio
	)
	if s.in.Mode == ModeVideo {
		kind = TransportVideo
		pullers = append(pullers, stream.New(PipeVideoIn.String(), s.in.Video, nil))
		writers = append(writers, pipes.parentEnd(PipeVideoIn))
	}
	pullers = append(pullers, stream.New(PipeAudioIn.String(), s.in.Audio, nil))
	writers = append(writers, pipes.parentEnd(PipeAudioIn))

	s.mu.Lock()
	s.pullers = pullers
	stopping := s.stopping
	if !stopping {
		s.transportLocked(kind)
	}
	s.mu.Unlock()

	if stopping {
		for _, p := range pullers {
			p.Stop()
		}
	}
	return pullers, writers
}

// onBlock recomputes the aggregate on every progress report.
func (s *Supervisor) onBlock(progressBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case consts.StatusStarting, consts.StatusDownloading, consts.StatusPaused:
	default:
		return
	}
	if s.stopping || s.failErr != nil {
		return
	}

	inputs := make([]counters, len(s.pullers))
	for i, p := range s.pullers {
		inputs[i] = p
	}
	a := aggregateOf(inputs, s.cfg.Now().Sub(s.started))
	if a.Percent < s.percent {
		a.Percent = s.percent
	}
	s.percent = a.Percent
	s.last = a

	if s.status != consts.StatusPaused {
		s.status = consts.StatusDownloading
	}
	s.emitLocked("")
}

// Pause suspends every puller. It reports whether anything changed.
func (s *Supervisor) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != consts.StatusDownloading && s.status != consts.StatusStarting {
		return false
	}
	if s.stopping || len(s.pullers) == 0 {
		return false
	}
	changed := false
	for _, p := range s.pullers {
		if p.Pause() {
			changed = true
		}
	}
	if changed {
		s.setStatusLocked(consts.StatusPaused)
	}
	return changed
}

// Resume continues paused pullers. It reports whether anything changed.
func (s *Supervisor) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != consts.StatusPaused || s.stopping {
		return false
	}
	for _, p := range s.pullers {
		p.Resume()
	}
	s.setStatusLocked(consts.StatusDownloading)
	return true
}

// Stop aborts the job. Run then cleans up and reports stopped.
// Stop is a no-op during post-processing, after completion, and when repeated.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopping || s.status == consts.StatusProcessing || s.status.IsTerminal() {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pullers := s.pullers
	s.mu.Unlock()

	logging.D(1, "Stopping job %q", s.in.Title)
	for _, p := range pullers {
		p.Stop()
	}
	s.cancelRun(errs.ErrCanceled)
}

// Status returns the supervisor's current status.
func (s *Supervisor) Status() consts.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Supervisor) cancelRun(cause error) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel(cause)
	}
}

// splitTracks replaces the single output with a directory of tracks.
func (s *Supervisor) splitTracks(ctx context.Context, output string) error {
	s.mu.Lock()
	s.transportLocked(TransportProcessing)
	s.completeCountersLocked()
	s.setStatusLocked(consts.StatusProcessing)
	s.mu.Unlock()

	temp := fs.TempName(output, consts.TempSuffix)
	// Both files are gone before the terminal snapshot is published.
	cleanup := func() {
		for _, path := range []string{output, temp} {
			if err := fs.RemoveIfExists(path); err != nil {
				logging.W("Failed to remove %q: %v", path, err)
			}
		}
	}

	if err := os.Rename(output, temp); err != nil {
		cleanup()
		return s.finishFailed(&errs.PostProcessingError{Err: err})
	}

	name := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	dir, err := fs.Resolve(s.cfg.OutputDir, name, "")
	if err != nil {
		cleanup()
		return s.finishFailed(&errs.PostProcessingError{Err: err})
	}

	tracks, err := s.cfg.Segmenter.Split(ctx, temp, dir, s.cfg.Split)
	cleanup()
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.W("Failed to remove %q: %v", dir, rmErr)
		}
		return s.finishFailed(&errs.PostProcessingError{Err: err})
	}

	logging.S("Split %q into %d tracks", name, len(tracks))
	return s.finishSucceeded(dir)
}

func (s *Supervisor) finishSucceeded(output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.output = output
	s.completeCountersLocked()
	s.transportLocked(TransportClosed)
	s.setStatusLocked(consts.StatusFinished)
	return nil
}

func (s *Supervisor) finishStopped() error {
	s.removeOutput()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.transportLocked(TransportClosed)
	s.status = consts.StatusStopped
	s.emitLocked(errs.CanceledMsg)
	return errs.ErrCanceled
}

func (s *Supervisor) finishFailed(err error) error {
	s.removeOutput()

	s.mu.Lock()
	defer s.mu.Unlock()

	logging.E("Job %q failed: %v", s.in.Title, err)
	s.transportLocked(TransportClosed)
	s.status = consts.StatusFailed
	s.emitLocked(err.Error())
	return err
}

func (s *Supervisor) removeOutput() {
	s.mu.Lock()
	output := s.output
	s.output = ""
	s.mu.Unlock()

	if output == "" {
		return
	}
	if err := fs.RemoveIfExists(output); err != nil {
		logging.W("Failed to remove partial output %q: %v", output, err)
	}
}

// completeCountersLocked pins the counters to a finished transfer.
func (s *Supervisor) completeCountersLocked() {
	if s.last.Total < 0 {
		s.last.Total = s.last.Downloaded
	}
	s.last.Downloaded = s.last.Total
	s.last.Percent = 1
	s.percent = 1
	zero := 0.0
	s.last.ETA = &zero
}

func (s *Supervisor) setStatusLocked(status consts.JobStatus) {
	s.status = status
	s.emitLocked("")
}

func (s *Supervisor) transportLocked(kind TransportKind) {
	if s.hooks.Transport != nil {
		s.hooks.Transport(kind)
	}
}

func (s *Supervisor) emitLocked(errMsg string) {
	if s.hooks.Progress == nil {
		return
	}
	p := models.Progress{
		Status:               s.status,
		Percent:              s.last.Percent,
		Downloaded:           s.last.Downloaded,
		Total:                s.last.Total,
		EstimatedSecondsLeft: s.last.ETA,
		Error:                errMsg,
		UpdatedAt:            s.cfg.Now(),
	}
	if !s.started.IsZero() {
		p.ElapsedSeconds = s.cfg.Now().Sub(s.started).Seconds()
	}
	if s.status == consts.StatusFinished {
		p.OutputPath = s.output
	}
	s.hooks.Progress(p)
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if over := len(w.buf) - w.max; over > 0 {
		w.buf = w.buf[over:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(string(w.buf))
}

// debugWriter forwards child output to the debug log, one line per entry.
type debugWriter struct {
	prefix string
}

func (w debugWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			logging.D(3, "%s%s", w.prefix, line)
		}
	}
	return len(p), nil
}
