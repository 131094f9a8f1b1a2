package downloads

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/errs"
	"mediadl/internal/models"
	"mediadl/internal/mux"
)

// fakeClock only moves when told to. Its tickers never fire; tests drive
// the queue through tick directly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	return &fakeTicker{c: make(chan time.Time)}
}

type fakeTicker struct {
	c chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               {}

// fakeEngine runs until released or stopped.
type fakeEngine struct {
	req     models.Request
	hooks   mux.Hooks
	release chan error
	running chan struct{}

	stopOnce sync.Once
	stopped  chan struct{}
	pauses   atomic.Int32
	resumes  atomic.Int32
	stops    atomic.Int32
}

func (e *fakeEngine) Run(ctx context.Context) error {
	e.hooks.Progress(models.Progress{Status: consts.StatusStarting, Total: models.UnknownTotal})
	e.hooks.Transport(mux.TransportAudio)
	e.hooks.Progress(models.Progress{Status: consts.StatusDownloading, Percent: 0.1, Downloaded: 10, Total: 100})
	close(e.running)

	select {
	case err := <-e.release:
		e.hooks.Transport(mux.TransportClosed)
		if err != nil {
			e.hooks.Progress(models.Progress{Status: consts.StatusFailed, Error: err.Error()})
			return err
		}
		e.hooks.Progress(models.Progress{Status: consts.StatusFinished, Percent: 1, Downloaded: 100, Total: 100})
		return nil
	case <-e.stopped:
		e.hooks.Transport(mux.TransportClosed)
		e.hooks.Progress(models.Progress{Status: consts.StatusStopped, Error: errs.CanceledMsg})
		return errs.ErrCanceled
	}
}

func (e *fakeEngine) Pause() bool {
	e.pauses.Add(1)
	e.hooks.Progress(models.Progress{Status: consts.StatusPaused, Percent: 0.1, Downloaded: 10, Total: 100})
	return true
}

func (e *fakeEngine) Resume() bool {
	e.resumes.Add(1)
	e.hooks.Progress(models.Progress{Status: consts.StatusDownloading, Percent: 0.1, Downloaded: 10, Total: 100})
	return true
}

func (e *fakeEngine) Stop() {
	e.stops.Add(1)
	e.stopOnce.Do(func() { close(e.stopped) })
}

// engines is a factory that hands out fakeEngines in creation order.
type engines struct {
	created chan *fakeEngine
	err     error
}

func newEngines() *engines {
	return &engines{created: make(chan *fakeEngine, 16)}
}

func (f *engines) factory(req models.Request, hooks mux.Hooks) (Engine, error) {
	if f.err != nil {
		return nil, f.err
	}
	e := &fakeEngine{
		req:     req,
		hooks:   hooks,
		release: make(chan error, 1),
		running: make(chan struct{}),
		stopped: make(chan struct{}),
	}
	f.created <- e
	return e, nil
}

func (f *engines) next(t *testing.T) *fakeEngine {
	t.Helper()
	select {
	case e := <-f.created:
		select {
		case <-e.running:
		case <-time.After(5 * time.Second):
			t.Fatalf("engine for %q never attached", e.req.ID)
		}
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("no engine was started")
		return nil
	}
}

func (f *engines) none(t *testing.T) {
	t.Helper()
	select {
	case e := <-f.created:
		t.Fatalf("unexpected engine for %q", e.req.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestQueue(concurrency int) (*Queue, *engines, *fakeClock) {
	clock := newFakeClock()
	eng := newEngines()
	q := NewQueue(Options{
		Concurrency:      concurrency,
		ProgressThrottle: -1,
		Clock:            clock,
		NewEngine:        eng.factory,
	})
	return q, eng, clock
}

func audioRequest(id string) models.Request {
	return models.Request{
		ID:    id,
		Title: "Title " + id,
		Format: models.Format{
			URL:       "https://media.example/" + id,
			MimeType:  "audio/webm",
			HasAudio:  true,
			Extension: "mp3",
		},
	}
}

// waitStatus drains sub until a snapshot with status arrives.
func waitStatus(t *testing.T, sub *Subscription, status consts.JobStatus) models.Progress {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p, ok := <-sub.C:
			if !ok {
				t.Fatalf("subscription for %q closed before status %s", sub.JobID, status)
			}
			if p.Status == status {
				return p
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q to reach %s", sub.JobID, status)
		}
	}
}

func mustSubmit(t *testing.T, q *Queue, req models.Request) *Subscription {
	t.Helper()
	sub, err := q.Submit(req)
	if err != nil {
		t.Fatalf("Submit(%q) = %v", req.ID, err)
	}
	return sub
}

func mustStatus(t *testing.T, q *Queue, id string, want consts.JobStatus) {
	t.Helper()
	p, err := q.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot(%q) = %v", id, err)
	}
	if p.Status != want {
		t.Fatalf("%q status = %s, want %s", id, p.Status, want)
	}
}
