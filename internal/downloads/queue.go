// Package downloads schedules download jobs and tracks their progress.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/errs"
	"mediadl/internal/models"
	"mediadl/internal/mux"
	"mediadl/internal/utils/logging"
)

// Options holds configuration for the download queue.
type Options struct {
	Concurrency       int
	TickInterval      time.Duration
	EvictionGrace     time.Duration
	ProgressThrottle  time.Duration
	SubscriberBacklog int

	Clock     Clock
	NewEngine EngineFactory
	Journal   Journal
}

// DefaultOptions provides sensible defaults. NewEngine must still be set.
var DefaultOptions = Options{
	Concurrency:       consts.DefaultConcurrency,
	TickInterval:      consts.QueueTickInterval,
	EvictionGrace:     consts.EvictionGrace,
	ProgressThrottle:  consts.ProgressThrottle,
	SubscriberBacklog: consts.SubscriberBacklog,
	Clock:             SystemClock{},
}

// Queue admits submitted jobs under a concurrency ceiling in submission order.
type Queue struct {
	opts Options

	mu        sync.Mutex
	jobs      map[string]*Job
	nextOrder uint64
	runCtx    context.Context
	outbox    *outbox

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewQueue returns a queue. Zero option fields take their defaults.
func NewQueue(opts Options) *Queue {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions.Concurrency
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultOptions.TickInterval
	}
	if opts.EvictionGrace <= 0 {
		opts.EvictionGrace = DefaultOptions.EvictionGrace
	}
	if opts.ProgressThrottle < 0 {
		opts.ProgressThrottle = 0
	} else if opts.ProgressThrottle == 0 {
		opts.ProgressThrottle = DefaultOptions.ProgressThrottle
	}
	if opts.SubscriberBacklog <= 0 {
		opts.SubscriberBacklog = DefaultOptions.SubscriberBacklog
	}
	if opts.Clock == nil {
		opts.Clock = DefaultOptions.Clock
	}

	q := &Queue{
		opts:   opts,
		jobs:   make(map[string]*Job),
		runCtx: context.Background(),
		wake:   make(chan struct{}, 1),
	}
	// Jobs journal under their own lock, often with q.mu held too.
	if opts.Journal != nil {
		q.outbox = newOutbox(opts.Journal, journalBacklog)
		q.opts.Journal = q.outbox
	}
	return q
}

// Submit enqueues a request and returns a subscription to its progress.
//
// A request whose ID matches a job that has not terminated is rejected with
// errs.ErrDuplicateJob. A terminal job still inside its grace period is replaced.
func (q *Queue) Submit(req models.Request) (*Subscription, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	q.mu.Lock()
	if old, ok := q.jobs[req.ID]; ok {
		if !old.Status().IsTerminal() {
			q.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", errs.ErrDuplicateJob, req.ID)
		}
		old.closeSubscribers()
		logging.D(1, "Replacing finished job %q", req.ID)
	}

	q.nextOrder++
	job := newJob(req, q.nextOrder, &q.opts)
	q.jobs[req.ID] = job
	sub := job.subscribe()
	q.mu.Unlock()

	logging.I("Queued %q (%s)", req.Title, req.ID)
	q.notify()
	return sub, nil
}

func validate(req models.Request) error {
	switch {
	case req.ID == "":
		return fmt.Errorf("%w: missing id", errs.ErrInvalidJob)
	case req.Format.URL == "":
		return fmt.Errorf("%w: format has no URL", errs.ErrInvalidJob)
	case !req.AudioOnly() && (req.Companion == nil || req.Companion.URL == ""):
		return fmt.Errorf("%w: video format needs a companion audio format", errs.ErrInvalidJob)
	}
	return nil
}

// Pause pauses an active job. Pausing a job that cannot pause, or one that is
// not tracked, is a no-op.
func (q *Queue) Pause(id string) error {
	job, ok := q.lookup(id)
	if !ok {
		logging.D(2, "Ignoring pause of unknown job %q", id)
		return nil
	}
	job.ctrl.Pause()
	return nil
}

// Resume resumes a paused job. Resuming a job that is not paused, or one that
// is not tracked, is a no-op.
func (q *Queue) Resume(id string) error {
	job, ok := q.lookup(id)
	if !ok {
		logging.D(2, "Ignoring resume of unknown job %q", id)
		return nil
	}
	job.ctrl.Resume()
	return nil
}

// Stop cancels a job. A queued job is stopped without ever starting. Stopping
// a job that is not tracked (or was already evicted) is a no-op.
func (q *Queue) Stop(id string) error {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		logging.D(2, "Ignoring stop of unknown job %q", id)
		return nil
	}
	if !job.admitted() {
		job.publish(stoppedProgress(job.Snapshot()))
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	job.ctrl.Stop()
	return nil
}

// Subscribe attaches a new subscriber to a job.
func (q *Queue) Subscribe(id string) (*Subscription, error) {
	job, err := q.job(id)
	if err != nil {
		return nil, err
	}
	return job.subscribe(), nil
}

// Snapshot returns the latest progress of a job.
func (q *Queue) Snapshot(id string) (models.Progress, error) {
	job, err := q.job(id)
	if err != nil {
		return models.Progress{}, err
	}
	return job.Snapshot(), nil
}

// List returns a snapshot of every tracked job in submission order.
func (q *Queue) List() []models.Progress {
	q.mu.Lock()
	jobs := q.ordered()
	q.mu.Unlock()

	out := make([]models.Progress, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

// Run drives admission until ctx is done, then stops every unfinished job,
// waits for them to exit and flushes their status updates to the journal.
func (q *Queue) Run(ctx context.Context) error {
	// Jobs end through Stop during shutdown, not through ctx.
	q.mu.Lock()
	q.runCtx = context.WithoutCancel(ctx)
	q.mu.Unlock()

	ticker := q.opts.Clock.NewTicker(q.opts.TickInterval)
	defer ticker.Stop()

	q.tick()
	for {
		select {
		case <-ctx.Done():
			q.shutdown()
			if q.outbox != nil {
				q.outbox.flush()
			}
			return nil
		case <-ticker.C():
			q.tick()
		case <-q.wake:
			q.tick()
		}
	}
}

// Wait blocks until every started job has exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// notify wakes the driver without blocking.
func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// tick evicts expired jobs and promotes queued ones while slots are free.
func (q *Queue) tick() {
	now := q.opts.Clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	for id, job := range q.jobs {
		if job.expired(now, q.opts.EvictionGrace) {
			delete(q.jobs, id)
			logging.D(2, "Evicted job %q", id)
		}
	}

	active := 0
	var queued []*Job
	for _, job := range q.ordered() {
		status := job.Status()
		switch {
		case status == consts.StatusQueue:
			queued = append(queued, job)
		case !status.IsTerminal():
			active++
		}
	}

	for _, job := range queued {
		if active >= q.opts.Concurrency {
			break
		}
		active++
		q.start(job)
	}
}

// start launches a job. Callers hold q.mu.
func (q *Queue) start(job *Job) {
	job.publish(models.Progress{Status: consts.StatusStarting, Total: models.UnknownTotal})
	logging.I("Starting %q (%s)", job.req.Title, job.ID())

	ctx := q.runCtx
	q.wg.Add(1)
	go q.runJob(ctx, job)
}

func (q *Queue) runJob(ctx context.Context, job *Job) {
	defer q.wg.Done()
	defer q.notify()

	engine, err := q.opts.NewEngine(job.req, mux.Hooks{
		Progress:  job.publish,
		Transport: job.ctrl.setKind,
	})
	if err != nil {
		logging.E("Failed to prepare job %q: %v", job.ID(), err)
		job.publish(failedProgress(job.Snapshot(), err))
		return
	}
	job.ctrl.bind(engine)

	err = engine.Run(ctx)

	// Engines publish their own terminal state; this covers those that do not.
	if snap := job.Snapshot(); !snap.Status.IsTerminal() {
		switch {
		case err == nil:
			snap.Status = consts.StatusFinished
			snap.Percent = 1
			job.publish(snap)
		case errors.Is(err, errs.ErrCanceled):
			job.publish(stoppedProgress(snap))
		default:
			job.publish(failedProgress(snap, err))
		}
	}

	switch {
	case err == nil:
		logging.S("Finished %q", job.req.Title)
	case errors.Is(err, errs.ErrCanceled):
		logging.I("Stopped %q", job.req.Title)
	default:
		logging.E("Job %q failed: %v", job.req.Title, err)
	}
}

// shutdown stops every unfinished job and waits for the running ones.
func (q *Queue) shutdown() {
	q.mu.Lock()
	jobs := q.ordered()
	q.mu.Unlock()

	for _, job := range jobs {
		if job.Status().IsTerminal() {
			continue
		}
		if err := q.Stop(job.ID()); err != nil {
			logging.W("Failed to stop job %q during shutdown: %v", job.ID(), err)
		}
	}
	q.wg.Wait()
}

// job looks up a tracked job.
func (q *Queue) job(id string) (*Job, error) {
	job, ok := q.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownJob, id)
	}
	return job, nil
}

func (q *Queue) lookup(id string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	return job, ok
}

// ordered returns the tracked jobs by submission order. Callers hold q.mu.
func (q *Queue) ordered() []*Job {
	jobs := make([]*Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].order < jobs[b].order })
	return jobs
}

func stoppedProgress(p models.Progress) models.Progress {
	p.Status = consts.StatusStopped
	p.Error = errs.CanceledMsg
	p.EstimatedSecondsLeft = nil
	return p
}

func failedProgress(p models.Progress, err error) models.Progress {
	p.Status = consts.StatusFailed
	p.Error = err.Error()
	p.EstimatedSecondsLeft = nil
	return p
}
