package models

import (
	"time"

	"mediadl/internal/domain/consts"
)

// StatusUpdate models one status transition written to the job journal.
type StatusUpdate struct {
	JobID      string
	Title      string
	Status     consts.JobStatus
	Percent    float64
	Downloaded int64
	Total      int64
	Error      string
	OutputPath string
}

// JournalEntry is a row read back from the job journal.
type JournalEntry struct {
	JobID      string           `json:"id"`
	Title      string           `json:"title"`
	Status     consts.JobStatus `json:"status"`
	Percent    float64          `json:"percent"`
	Downloaded int64            `json:"downloaded"`
	Total      int64            `json:"total"`
	Error      string           `json:"error,omitempty"`
	OutputPath string           `json:"outputPath,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}
