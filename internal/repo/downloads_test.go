package repo

import (
	"context"
	"path/filepath"
	"testing"

	"mediadl/internal/database"
	"mediadl/internal/domain/consts"
	"mediadl/internal/models"
)

func openStore(t *testing.T) *DownloadStore {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB() = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return InitStores(db.DB).DownloadStore().(*DownloadStore)
}

func TestUpdateDownloadStatusesUpserts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ds := openStore(t)

	err := ds.UpdateDownloadStatuses(ctx, []models.StatusUpdate{
		{JobID: "a", Title: "First", Status: consts.StatusStarting, Total: -1},
		{JobID: "b", Title: "Second", Status: consts.StatusQueue, Total: -1},
	})
	if err != nil {
		t.Fatalf("UpdateDownloadStatuses() = %v", err)
	}

	err = ds.UpdateDownloadStatuses(ctx, []models.StatusUpdate{
		{JobID: "a", Title: "First", Status: consts.StatusFinished, Percent: 1.5, Downloaded: 10, Total: 10, OutputPath: "/music/First.mp3"},
	})
	if err != nil {
		t.Fatalf("UpdateDownloadStatuses() = %v", err)
	}

	e, found, err := ds.GetDownload(ctx, "a")
	if err != nil || !found {
		t.Fatalf("GetDownload() = %v, %v", found, err)
	}
	if e.Status != consts.StatusFinished || e.Percent != 1 || e.OutputPath != "/music/First.mp3" {
		t.Fatalf("entry = %+v", e)
	}
	if e.CreatedAt.IsZero() || e.UpdatedAt.Before(e.CreatedAt) {
		t.Fatalf("timestamps created=%v updated=%v", e.CreatedAt, e.UpdatedAt)
	}

	entries, err := ds.GetRecentDownloads(ctx, 0)
	if err != nil {
		t.Fatalf("GetRecentDownloads() = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want one row per job", len(entries))
	}
	if entries[0].JobID != "a" {
		t.Fatalf("most recent = %q, want a", entries[0].JobID)
	}

	limited, err := ds.GetRecentDownloads(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited history = %v, %v", limited, err)
	}
}

func TestGetDownloadMissing(t *testing.T) {
	t.Parallel()

	_, found, err := openStore(t).GetDownload(context.Background(), "nope")
	if err != nil || found {
		t.Fatalf("GetDownload() = %v, %v; want not found", found, err)
	}
}

func TestUpdateDownloadStatusesKeepsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ds := openStore(t)
	if err := ds.UpdateDownloadStatuses(ctx, []models.StatusUpdate{
		{JobID: "x", Status: consts.StatusStopped, Error: "Canceled by the user", Total: -1},
	}); err != nil {
		t.Fatal(err)
	}

	e, _, err := ds.GetDownload(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if e.Error != "Canceled by the user" || e.Total != -1 || e.Title != "" {
		t.Fatalf("entry = %+v", e)
	}
}
