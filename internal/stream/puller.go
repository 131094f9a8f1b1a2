// Package stream pulls one remote encoding into a local writer.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"mediadl/internal/domain/errs"
	"mediadl/internal/models"
	"mediadl/internal/utils/logging"
)

const chunkSize = 32 * 1024

// Source opens the byte stream of one encoding.
//
// size is the declared content length, or models.UnknownTotal.
type Source interface {
	Open(ctx context.Context) (body io.ReadCloser, size int64, err error)
}

// ProgressFunc receives the running byte count after every chunk.
type ProgressFunc func(downloaded, total int64)

type pullerState int

const (
	stateIdle pullerState = iota
	stateRunning
	stateDone
)

// Puller streams a Source into a writer with pause, resume and stop support.
type Puller struct {
	name       string
	src        Source
	onProgress ProgressFunc

	mu      sync.Mutex
	state   pullerState
	paused  bool
	gate    chan struct{} // closed while not paused
	body    io.ReadCloser
	cancel  context.CancelFunc
	stopped bool

	downloaded atomic.Int64
	total      atomic.Int64
}

// New returns a puller named after its role (e.g. "video", "audio").
func New(name string, src Source, onProgress ProgressFunc) *Puller {
	p := &Puller{
		name:       name,
		src:        src,
		onProgress: onProgress,
		gate:       make(chan struct{}),
	}
	close(p.gate)
	p.total.Store(models.UnknownTotal)
	return p
}

// Name returns the puller's role name.
func (p *Puller) Name() string {
	return p.name
}

// Counters returns the bytes received so far and the declared total.
func (p *Puller) Counters() (downloaded, total int64) {
	return p.downloaded.Load(), p.total.Load()
}

// Run opens the source and copies it into dst until EOF.
//
// It returns nil on a complete transfer, errs.ErrCanceled after Stop, and a
// *errs.TransportError for network failures. Run may be called once.
func (p *Puller) Run(ctx context.Context, dst io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.state != stateIdle {
		p.mu.Unlock()
		return fmt.Errorf("%s puller already started", p.name)
	}
	if p.stopped {
		p.state = stateDone
		p.mu.Unlock()
		return errs.ErrCanceled
	}
	p.state = stateRunning
	p.cancel = cancel
	p.mu.Unlock()

	defer p.finish()

	body, size, err := p.src.Open(ctx)
	if err != nil {
		return p.transportErr(err)
	}

	p.mu.Lock()
	p.body = body
	stopped := p.stopped
	p.mu.Unlock()
	defer body.Close()

	if stopped {
		return errs.ErrCanceled
	}
	if size >= 0 {
		p.total.Store(size)
	}

	buf := make([]byte, chunkSize)
	for {
		if err := p.waitIfPaused(ctx); err != nil {
			return p.transportErr(err)
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				if p.isStopped() {
					return errs.ErrCanceled
				}
				return fmt.Errorf("%s pipe write: %w", p.name, werr)
			}
			done := p.downloaded.Add(int64(n))
			if p.onProgress != nil {
				p.onProgress(done, p.total.Load())
			}
		}

		if rerr == io.EOF {
			// A source that never declared its size is complete at EOF.
			if p.total.Load() < 0 {
				p.total.Store(p.downloaded.Load())
			}
			logging.D(2, "%s stream complete after %d bytes", p.name, p.downloaded.Load())
			return nil
		}
		if rerr != nil {
			return p.transportErr(rerr)
		}
	}
}

// waitIfPaused blocks while the puller is paused.
func (p *Puller) waitIfPaused(ctx context.Context) error {
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause suspends consumption without closing the connection.
// It reports whether the puller changed state.
func (p *Puller) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateDone || p.stopped || p.paused {
		return false
	}
	p.paused = true
	p.gate = make(chan struct{})
	return true
}

// Resume continues a paused puller. It reports whether the puller changed state.
func (p *Puller) Resume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateDone || p.stopped || !p.paused {
		return false
	}
	p.paused = false
	close(p.gate)
	return true
}

// Stop tears down the connection immediately. Calling it more than once is a no-op.
func (p *Puller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.state == stateDone {
		p.stopped = true
		return
	}
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	if p.body != nil {
		p.body.Close()
	}
	if p.paused {
		p.paused = false
		close(p.gate)
	}
}

// Paused reports whether the puller is currently paused.
func (p *Puller) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Puller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// finish marks the puller terminal; pause and resume become no-ops.
func (p *Puller) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = stateDone
	if p.paused {
		p.paused = false
		close(p.gate)
	}
}

// transportErr maps a failure to ErrCanceled after Stop, otherwise to a TransportError.
func (p *Puller) transportErr(err error) error {
	if p.isStopped() {
		return errs.ErrCanceled
	}
	if errors.Is(err, errs.ErrCanceled) {
		return err
	}
	return &errs.TransportError{Stream: p.name, Err: err}
}
