package mux

import (
	"time"

	"mediadl/internal/models"
)

// counters is satisfied by *stream.Puller.
type counters interface {
	Counters() (downloaded, total int64)
}

// aggregate is the combined transfer state of a job's inputs.
type aggregate struct {
	Downloaded int64
	Total      int64
	Percent    float64
	ETA        *float64
}

// aggregateOf sums the inputs' counters. Total stays unknown until every
// input has declared its size.
func aggregateOf(inputs []counters, elapsed time.Duration) aggregate {
	a := aggregate{Total: 0}
	for _, in := range inputs {
		done, total := in.Counters()
		a.Downloaded += done
		if total < 0 || a.Total < 0 {
			a.Total = models.UnknownTotal
			continue
		}
		a.Total += total
	}
	if len(inputs) == 0 {
		a.Total = models.UnknownTotal
	}

	if a.Total > 0 {
		a.Percent = float64(a.Downloaded) / float64(a.Total)
		if a.Percent > 1 {
			a.Percent = 1
		}
	}
	a.ETA = estimateLeft(a.Percent, elapsed.Seconds())
	return a
}

// estimateLeft extrapolates linearly from the elapsed time. It returns nil
// while nothing has been transferred.
func estimateLeft(percent, elapsed float64) *float64 {
	if percent <= 0 {
		return nil
	}
	left := elapsed/percent - elapsed
	if left < 0 {
		left = 0
	}
	return &left
}
