// Package contracts defines interfaces that decouple the application layer from storage implementations.
package contracts

import (
	"context"
	"database/sql"

	"mediadl/internal/models"
)

// DownloadStore allows access to download journal repo methods.
type DownloadStore interface {
	GetDB() *sql.DB

	// Update operations.
	UpdateDownloadStatuses(ctx context.Context, updates []models.StatusUpdate) error

	// Get operations.
	GetRecentDownloads(ctx context.Context, limit int) ([]models.JournalEntry, error)
	GetDownload(ctx context.Context, jobID string) (entry models.JournalEntry, found bool, err error)
}
