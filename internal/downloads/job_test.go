package downloads

import (
	"testing"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/models"
)

func newTestJob(throttle time.Duration, backlog int) (*Job, *fakeClock) {
	clock := newFakeClock()
	j := newJob(audioRequest("job"), 1, &Options{
		Clock:             clock,
		ProgressThrottle:  throttle,
		SubscriberBacklog: backlog,
	})
	return j, clock
}

func drain(sub *Subscription) []models.Progress {
	var out []models.Progress
	for {
		select {
		case p, ok := <-sub.C:
			if !ok {
				return out
			}
			out = append(out, p)
		default:
			return out
		}
	}
}

func downloading(pct float64) models.Progress {
	return models.Progress{Status: consts.StatusDownloading, Percent: pct, Downloaded: int64(pct * 100), Total: 100}
}

func TestJobThrottlesDownloadingUpdates(t *testing.T) {
	t.Parallel()

	j, clock := newTestJob(333*time.Millisecond, 32)
	sub := j.subscribe()

	j.publish(models.Progress{Status: consts.StatusStarting, Total: models.UnknownTotal})
	j.publish(downloading(0.1))
	j.publish(downloading(0.2))
	clock.Advance(400 * time.Millisecond)
	j.publish(downloading(0.3))
	j.publish(models.Progress{Status: consts.StatusPaused, Percent: 0.3, Downloaded: 30, Total: 100})

	got := drain(sub)
	want := []struct {
		status  consts.JobStatus
		percent float64
	}{
		{consts.StatusQueue, 0},
		{consts.StatusStarting, 0},
		{consts.StatusDownloading, 0.1},
		{consts.StatusDownloading, 0.3},
		{consts.StatusPaused, 0.3},
	}
	if len(got) != len(want) {
		t.Fatalf("delivered %d snapshots, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Status != w.status || got[i].Percent != w.percent {
			t.Fatalf("snapshot %d = %s/%v, want %s/%v", i, got[i].Status, got[i].Percent, w.status, w.percent)
		}
		if got[i].ID != "job" {
			t.Fatalf("snapshot %d has id %q", i, got[i].ID)
		}
	}

	// The throttled value is still visible to pollers.
	if p := j.Snapshot(); p.Status != consts.StatusPaused {
		t.Fatalf("snapshot status = %s", p.Status)
	}
}

func TestJobPercentIsMonotoneWhileDownloading(t *testing.T) {
	t.Parallel()

	j, _ := newTestJob(0, 32)
	j.publish(downloading(0.5))
	j.publish(downloading(0.4))

	if p := j.Snapshot(); p.Percent != 0.5 {
		t.Fatalf("percent = %v, want 0.5", p.Percent)
	}
}

func TestJobTransitionsSurviveFullBacklog(t *testing.T) {
	t.Parallel()

	j, _ := newTestJob(0, 2)
	sub := j.subscribe()

	j.publish(models.Progress{Status: consts.StatusStarting, Total: models.UnknownTotal})
	j.publish(downloading(0.1))
	j.publish(downloading(0.2))
	j.publish(models.Progress{Status: consts.StatusFinished, Percent: 1, Downloaded: 100, Total: 100})

	got := drain(sub)
	if len(got) != 2 {
		t.Fatalf("delivered %+v", got)
	}
	if got[0].Status != consts.StatusDownloading || got[0].Percent != 0.1 {
		t.Fatalf("first = %+v, want downloading 0.1", got[0])
	}
	if got[1].Status != consts.StatusFinished {
		t.Fatalf("last = %+v, want finished", got[1])
	}
	if _, ok := <-sub.C; ok {
		t.Fatal("channel open after terminal snapshot")
	}
}

func TestJobTerminalIsAbsorbing(t *testing.T) {
	t.Parallel()

	j, _ := newTestJob(0, 32)
	j.publish(models.Progress{Status: consts.StatusFailed, Error: "boom"})
	j.publish(downloading(0.9))

	p := j.Snapshot()
	if p.Status != consts.StatusFailed || p.Error != "boom" {
		t.Fatalf("snapshot = %+v, want failed", p)
	}

	sub := j.subscribe()
	got := drain(sub)
	if len(got) != 1 || got[0].Status != consts.StatusFailed {
		t.Fatalf("late subscriber got %+v", got)
	}
}

func TestSubscriptionClose(t *testing.T) {
	t.Parallel()

	j, _ := newTestJob(0, 32)
	sub := j.subscribe()
	sub.Close()
	sub.Close()

	j.publish(downloading(0.2))
	got := drain(sub)
	if len(got) != 1 || got[0].Status != consts.StatusQueue {
		t.Fatalf("closed subscriber got %+v", got)
	}
}

type recordingJournal struct {
	updates []models.StatusUpdate
}

func (r *recordingJournal) Record(u models.StatusUpdate) {
	r.updates = append(r.updates, u)
}

func TestJobJournalsTransitionsOnly(t *testing.T) {
	t.Parallel()

	journal := &recordingJournal{}
	clock := newFakeClock()
	j := newJob(audioRequest("job"), 1, &Options{Clock: clock, SubscriberBacklog: 4, Journal: journal})

	j.publish(models.Progress{Status: consts.StatusStarting, Total: models.UnknownTotal})
	j.publish(downloading(0.1))
	j.publish(downloading(0.2))
	j.publish(models.Progress{Status: consts.StatusFinished, Percent: 1, Downloaded: 100, Total: 100, OutputPath: "/tmp/x.mp3"})

	var statuses []consts.JobStatus
	for _, u := range journal.updates {
		statuses = append(statuses, u.Status)
	}
	want := []consts.JobStatus{consts.StatusStarting, consts.StatusDownloading, consts.StatusFinished}
	if len(statuses) != len(want) {
		t.Fatalf("journaled %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("journaled %v, want %v", statuses, want)
		}
	}
	if last := journal.updates[2]; last.OutputPath != "/tmp/x.mp3" || last.Title != "Title job" {
		t.Fatalf("final update = %+v", last)
	}
}
