package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/models"
	"mediadl/internal/utils/logging"

	"github.com/Masterminds/squirrel"
)

// DownloadStore holds a pointer to the sql.DB.
type DownloadStore struct {
	DB *sql.DB
}

// GetDownloadStore returns a download store instance with injected database.
func GetDownloadStore(db *sql.DB) *DownloadStore {
	return &DownloadStore{
		DB: db,
	}
}

// GetDB returns the database.
func (ds *DownloadStore) GetDB() *sql.DB {
	return ds.DB
}

// UpdateDownloadStatuses writes each update as the latest state of its job.
func (ds *DownloadStore) UpdateDownloadStatuses(ctx context.Context, updates []models.StatusUpdate) (err error) {
	if len(updates) == 0 {
		return nil
	}

	tx, err := ds.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed for updates: %+v: %v", updates, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Failed to rollback transaction for updates: %+v (original error: %v): %v", updates, err, rbErr)
			}
		}
	}()

	now := time.Now()
	for _, u := range updates {
		normalizePercent(&u.Percent)

		query := squirrel.Insert(consts.DBJobs).
			Columns(
				consts.QJobID,
				consts.QJobTitle,
				consts.QJobStatus,
				consts.QJobPercent,
				consts.QJobDownloaded,
				consts.QJobTotal,
				consts.QJobError,
				consts.QJobOutput,
				consts.QJobCreatedAt,
				consts.QJobUpdatedAt,
			).
			Values(u.JobID, u.Title, u.Status, u.Percent, u.Downloaded, u.Total, u.Error, u.OutputPath, now, now).
			Suffix(fmt.Sprintf(
				"ON CONFLICT(%[1]s) DO UPDATE SET %[2]s = excluded.%[2]s, %[3]s = excluded.%[3]s, %[4]s = excluded.%[4]s, "+
					"%[5]s = excluded.%[5]s, %[6]s = excluded.%[6]s, %[7]s = excluded.%[7]s, %[8]s = excluded.%[8]s, %[9]s = excluded.%[9]s",
				consts.QJobID,
				consts.QJobTitle,
				consts.QJobStatus,
				consts.QJobPercent,
				consts.QJobDownloaded,
				consts.QJobTotal,
				consts.QJobError,
				consts.QJobOutput,
				consts.QJobUpdatedAt,
			)).
			RunWith(tx)

		if _, err = query.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to update download status for job %q: %w", u.JobID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status updates: %w", err)
	}
	return nil
}

// GetRecentDownloads returns up to limit journal rows, most recently updated first.
func (ds *DownloadStore) GetRecentDownloads(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	query := selectEntries().
		OrderBy(consts.QJobUpdatedAt+" DESC", consts.QJobRowID+" DESC").
		RunWith(ds.DB)
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query download history: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read download history: %w", err)
	}
	return entries, nil
}

// GetDownload returns the journal row of one job.
func (ds *DownloadStore) GetDownload(ctx context.Context, jobID string) (models.JournalEntry, bool, error) {
	row := selectEntries().
		Where(squirrel.Eq{consts.QJobID: jobID}).
		RunWith(ds.DB).
		QueryRowContext(ctx)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.JournalEntry{}, false, nil
	}
	if err != nil {
		return models.JournalEntry{}, false, err
	}
	return e, true, nil
}

func selectEntries() squirrel.SelectBuilder {
	return squirrel.Select(
		consts.QJobID,
		consts.QJobTitle,
		consts.QJobStatus,
		consts.QJobPercent,
		consts.QJobDownloaded,
		consts.QJobTotal,
		consts.QJobError,
		consts.QJobOutput,
		consts.QJobCreatedAt,
		consts.QJobUpdatedAt,
	).From(consts.DBJobs)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.JournalEntry, error) {
	var (
		e                   models.JournalEntry
		title, errMsg, path sql.NullString
	)
	if err := s.Scan(
		&e.JobID,
		&title,
		&e.Status,
		&e.Percent,
		&e.Downloaded,
		&e.Total,
		&errMsg,
		&path,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan journal row: %w", err)
	}
	e.Title = title.String
	e.Error = errMsg.String
	e.OutputPath = path.String
	return e, nil
}

// normalizePercent keeps stored percentages within [0,1].
func normalizePercent(p *float64) {
	switch {
	case *p < 0:
		*p = 0
	case *p > 1:
		*p = 1
	}
}
