package models

import (
	"time"

	"mediadl/internal/domain/consts"
)

// UnknownTotal marks a byte total the transport has not declared yet.
const UnknownTotal int64 = -1

// Progress is an immutable snapshot of a job's state.
//
// A new value is built for every update; published values are never mutated.
type Progress struct {
	ID     string           `json:"id"`
	Status consts.JobStatus `json:"status"`

	// Percent is in [0,1] and stays 0 while Total is unknown.
	Percent    float64 `json:"percent"`
	Downloaded int64   `json:"downloaded"`
	Total      int64   `json:"total"`

	ElapsedSeconds float64 `json:"elapsedSeconds"`
	// EstimatedSecondsLeft is a linear extrapolation; nil while percent is 0 or unknown.
	EstimatedSecondsLeft *float64 `json:"estimatedSecondsLeft,omitempty"`

	Error      string    `json:"error,omitempty"`
	OutputPath string    `json:"outputPath,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TotalKnown reports whether every constituent stream declared its size.
func (p Progress) TotalKnown() bool {
	return p.Total >= 0
}

// QueuedProgress returns the initial snapshot of a freshly submitted job.
func QueuedProgress(id string, now time.Time) Progress {
	return Progress{
		ID:        id,
		Status:    consts.StatusQueue,
		Total:     UnknownTotal,
		UpdatedAt: now,
	}
}
