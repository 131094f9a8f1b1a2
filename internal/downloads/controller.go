package downloads

import (
	"context"
	"sync"

	"mediadl/internal/mux"
)

// Engine executes one job. *mux.Supervisor is the production engine.
type Engine interface {
	Run(ctx context.Context) error
	Pause() bool
	Resume() bool
	Stop()
}

// Transport is the active carrier of a job's bytes.
type Transport struct {
	Kind   mux.TransportKind
	Engine Engine
}

// Controller is the per-job pause/resume/stop facade.
//
// Controls are dispatched on the transport kind: they do nothing before the
// transport is attached (except Stop, which the engine honors at its next
// checkpoint), while post-processing, and once closed.
type Controller struct {
	mu          sync.Mutex
	transport   Transport
	pendingStop bool
}

// Transport returns the current transport handle.
func (c *Controller) Transport() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

// bind installs the engine before it runs.
func (c *Controller) bind(e Engine) {
	c.mu.Lock()
	c.transport.Engine = e
	stop := c.pendingStop
	c.mu.Unlock()

	if stop {
		e.Stop()
	}
}

// setKind is the engine's transport hook.
func (c *Controller) setKind(kind mux.TransportKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport.Kind = kind
}

// Pause suspends the job's streams. It reports whether anything changed.
func (c *Controller) Pause() bool {
	t := c.Transport()
	switch t.Kind {
	case mux.TransportVideo, mux.TransportAudio:
		return t.Engine.Pause()
	default:
		return false
	}
}

// Resume continues a paused job. It reports whether anything changed.
func (c *Controller) Resume() bool {
	t := c.Transport()
	switch t.Kind {
	case mux.TransportVideo, mux.TransportAudio:
		return t.Engine.Resume()
	default:
		return false
	}
}

// Stop aborts the job.
func (c *Controller) Stop() {
	c.mu.Lock()
	t := c.transport
	if t.Engine == nil {
		c.pendingStop = true
	}
	c.mu.Unlock()

	switch t.Kind {
	case mux.TransportNone, mux.TransportVideo, mux.TransportAudio:
		if t.Engine != nil {
			t.Engine.Stop()
		}
	case mux.TransportProcessing, mux.TransportClosed:
	}
}
