package downloads

import (
	"sync"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/models"

	"github.com/google/uuid"
)

// Subscription delivers a job's progress snapshots.
//
// C is closed after the terminal snapshot or when the subscription is closed.
type Subscription struct {
	ID    string
	JobID string
	C     <-chan models.Progress

	ch  chan models.Progress
	job *Job
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.job.unsubscribe(s.ID)
}

// Job is one submitted download.
type Job struct {
	req   models.Request
	order uint64
	ctrl  *Controller
	clock Clock

	throttle time.Duration
	backlog  int
	journal  Journal

	mu         sync.Mutex
	snap       models.Progress
	started    bool
	lastSent   time.Time
	finishedAt time.Time
	subs       map[string]*Subscription
}

func newJob(req models.Request, order uint64, opts *Options) *Job {
	return &Job{
		req:      req,
		order:    order,
		ctrl:     &Controller{},
		clock:    opts.Clock,
		throttle: opts.ProgressThrottle,
		backlog:  opts.SubscriberBacklog,
		journal:  opts.Journal,
		snap:     models.QueuedProgress(req.ID, opts.Clock.Now()),
		subs:     make(map[string]*Subscription),
	}
}

// ID returns the job key.
func (j *Job) ID() string { return j.req.ID }

// Snapshot returns the latest published snapshot.
func (j *Job) Snapshot() models.Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap
}

// Status returns the job's current status.
func (j *Job) Status() consts.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.Status
}

// admitted reports whether the job has been promoted out of the queue.
func (j *Job) admitted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.started
}

// expired reports whether a terminal job has outlived the grace period.
func (j *Job) expired(now time.Time, grace time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.Status.IsTerminal() && now.Sub(j.finishedAt) >= grace
}

// publish replaces the snapshot and fans it out to subscribers.
func (j *Job) publish(p models.Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()

	prev := j.snap
	if prev.Status.IsTerminal() {
		return
	}
	if p.Status == consts.StatusStarting && prev.Status == consts.StatusStarting {
		return
	}

	now := j.clock.Now()
	p.ID = j.req.ID
	p.UpdatedAt = now
	if p.Status == consts.StatusDownloading && p.Percent < prev.Percent {
		p.Percent = prev.Percent
	}
	if p.Status != consts.StatusQueue {
		j.started = true
	}
	j.snap = p

	transition := p.Status != prev.Status
	if !transition && p.Status == consts.StatusDownloading && now.Sub(j.lastSent) < j.throttle {
		return
	}
	j.lastSent = now

	for _, sub := range j.subs {
		deliver(sub.ch, p, transition)
	}

	if transition && j.journal != nil {
		j.journal.Record(models.StatusUpdate{
			JobID:      p.ID,
			Title:      j.req.Title,
			Status:     p.Status,
			Percent:    p.Percent,
			Downloaded: p.Downloaded,
			Total:      p.Total,
			Error:      p.Error,
			OutputPath: p.OutputPath,
		})
	}

	if p.Status.IsTerminal() {
		j.finishedAt = now
		for id, sub := range j.subs {
			close(sub.ch)
			delete(j.subs, id)
		}
	}
}

// deliver never blocks. A full buffer drops the new snapshot, unless it is a
// status transition, in which case the oldest buffered snapshot goes.
func deliver(ch chan models.Progress, p models.Progress, transition bool) {
	for {
		select {
		case ch <- p:
			return
		default:
		}
		if !transition {
			return
		}
		select {
		case <-ch:
		default:
		}
	}
}

// subscribe registers a subscriber primed with the current snapshot.
func (j *Job) subscribe() *Subscription {
	ch := make(chan models.Progress, j.backlog)
	sub := &Subscription{
		ID:    uuid.NewString(),
		JobID: j.req.ID,
		C:     ch,
		ch:    ch,
		job:   j,
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	ch <- j.snap
	if j.snap.Status.IsTerminal() {
		close(ch)
		return sub
	}
	j.subs[sub.ID] = sub
	return sub
}

func (j *Job) unsubscribe(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if sub, ok := j.subs[id]; ok {
		close(sub.ch)
		delete(j.subs, id)
	}
}

// closeSubscribers ends every subscription of a job that is being replaced.
func (j *Job) closeSubscribers() {
	j.mu.Lock()
	defer j.mu.Unlock()

	for id, sub := range j.subs {
		close(sub.ch)
		delete(j.subs, id)
	}
}
