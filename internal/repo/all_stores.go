// Package repo implements the storage contracts on top of SQLite.
package repo

import (
	"database/sql"

	"mediadl/internal/contracts"
)

// Store holds the program's stores.
type Store struct {
	db            *sql.DB
	downloadStore *DownloadStore
}

// InitStores returns the stores backed by db.
func InitStores(db *sql.DB) *Store {
	return &Store{
		db:            db,
		downloadStore: GetDownloadStore(db),
	}
}

// DownloadStore returns the download journal store.
func (s *Store) DownloadStore() contracts.DownloadStore {
	return s.downloadStore
}
