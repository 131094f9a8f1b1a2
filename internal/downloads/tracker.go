package downloads

import (
	"context"
	"sync"
	"time"

	"mediadl/internal/contracts"
	"mediadl/internal/domain/consts"
	"mediadl/internal/models"
	"mediadl/internal/utils/logging"
)

// Journal receives every job status transition.
type Journal interface {
	Record(update models.StatusUpdate)
}

// journalBacklog bounds the status updates waiting on a slow journal.
const journalBacklog = 256

type journalItem struct {
	update  models.StatusUpdate
	flushed chan struct{}
}

// outbox hands status updates to a Journal from its own goroutine. Record
// never blocks; updates arriving while the backlog is full are dropped.
type outbox struct {
	next  Journal
	items chan journalItem
}

func newOutbox(next Journal, size int) *outbox {
	o := &outbox{
		next:  next,
		items: make(chan journalItem, size),
	}
	go o.forward()
	return o
}

// Record implements Journal.
func (o *outbox) Record(update models.StatusUpdate) {
	select {
	case o.items <- journalItem{update: update}:
	default:
		logging.W("Journal backlog full, dropping %s update for job %q", update.Status, update.JobID)
	}
}

// flush returns once every update recorded before the call reached the journal.
func (o *outbox) flush() {
	done := make(chan struct{})
	o.items <- journalItem{flushed: done}
	<-done
}

func (o *outbox) forward() {
	for item := range o.items {
		if item.flushed != nil {
			close(item.flushed)
			continue
		}
		o.next.Record(item.update)
	}
}

// DownloadTracker writes status transitions to the download store.
type DownloadTracker struct {
	updates chan models.StatusUpdate
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	dlStore contracts.DownloadStore
}

// NewDownloadTracker returns the model used for tracking downloads.
func NewDownloadTracker(store contracts.DownloadStore) *DownloadTracker {
	return &DownloadTracker{
		updates: make(chan models.StatusUpdate, 100),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		dlStore: store,
	}
}

// Start starts download tracking.
func (t *DownloadTracker) Start(ctx context.Context) {
	go t.processUpdates(ctx)
}

// Stop flushes pending updates and stops download tracking.
func (t *DownloadTracker) Stop() {
	t.once.Do(func() { close(t.done) })
	<-t.stopped
}

// Record implements Journal. Updates sent after Stop are dropped.
func (t *DownloadTracker) Record(update models.StatusUpdate) {
	if update.JobID == "" {
		logging.E("Invalid status update without a job ID: %+v", update)
		return
	}
	select {
	case t.updates <- update:
	case <-t.done:
	}
}

// processUpdates processes download status updates.
func (t *DownloadTracker) processUpdates(ctx context.Context) {
	defer close(t.stopped)
	last := make(map[string]models.StatusUpdate)

	handle := func(update models.StatusUpdate) {
		if prev, ok := last[update.JobID]; ok && prev == update {
			return
		}
		last[update.JobID] = update
		if update.Status.IsTerminal() {
			delete(last, update.JobID)
		}
		logging.D(1, "Status update for job %q: Status: %s Percentage: %.1f Error: %s",
			update.JobID, update.Status, update.Percent*100, update.Error)
		t.flushUpdates(ctx, []models.StatusUpdate{update})
	}

	for {
		select {
		case <-t.done:
			for {
				select {
				case update := <-t.updates:
					handle(update)
				default:
					return
				}
			}
		case update := <-t.updates:
			handle(update)
		}
	}
}

// flushUpdates flushes pending download status updates to the database.
func (t *DownloadTracker) flushUpdates(ctx context.Context, updates []models.StatusUpdate) {
	if len(updates) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), consts.DatabaseTimeout)
	defer cancel()

	backoff := consts.RetryBackoff
	maxRetries := consts.DefaultMaxRetries

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := t.dlStore.UpdateDownloadStatuses(ctx, updates); err != nil {
			if attempt == maxRetries-1 {
				logging.E("Failed to update download statuses after %d attempts: %v", maxRetries, err)
				return
			}
			logging.W("Retrying update after failure (attempt %d/%d): %v",
				attempt+1, maxRetries, err)
			time.Sleep(backoff * time.Duration(attempt+1))
			continue
		}
		break
	}
	logging.D(2, "Successfully flushed %d status updates", len(updates))
}
