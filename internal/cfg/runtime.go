package cfg

import (
	"context"
	"fmt"

	"mediadl/internal/contracts"
	"mediadl/internal/database"
	"mediadl/internal/downloads"
	"mediadl/internal/models"
	"mediadl/internal/mux"
	"mediadl/internal/repo"
	"mediadl/internal/stream"
	"mediadl/internal/utils/browser"
	"mediadl/internal/utils/logging"
)

// runtime bundles the queue with its journal for one command run.
type runtime struct {
	queue   *downloads.Queue
	tracker *downloads.DownloadTracker
	db      *database.Database
	store   contracts.DownloadStore
}

// newRuntime opens the journal (unless disabled) and builds the queue.
func newRuntime(s Settings) (rt *runtime, err error) {
	newEngine, err := engineFactory(s)
	if err != nil {
		return nil, err
	}

	rt = new(runtime)
	opts := downloads.Options{
		Concurrency:   s.Concurrency,
		TickInterval:  s.TickInterval,
		EvictionGrace: s.EvictionGrace,
		NewEngine:     newEngine,
	}

	if !s.NoJournal {
		if rt.db, err = openJournal(s.DBPath); err != nil {
			return nil, err
		}
		rt.store = repo.InitStores(rt.db.DB).DownloadStore()
		rt.tracker = downloads.NewDownloadTracker(rt.store)
		opts.Journal = rt.tracker
	}

	rt.queue = downloads.NewQueue(opts)
	return rt, nil
}

// openJournal opens the job journal database.
func openJournal(path string) (*database.Database, error) {
	db, err := database.InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job journal: %w", err)
	}
	logging.D(1, "Opened job journal at %q", path)
	return db, nil
}

// start begins journal processing.
func (rt *runtime) start(ctx context.Context) {
	if rt.tracker != nil {
		rt.tracker.Start(ctx)
	}
}

// close flushes the journal and closes the database. The queue must have
// stopped first.
func (rt *runtime) close() {
	if rt.tracker != nil {
		rt.tracker.Stop()
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			logging.E("Failed to close job journal: %v", err)
		}
	}
}

// engineFactory returns the supervisor factory for the settings. With a
// cookie source configured, cookies are read per job for its stream domains.
func engineFactory(s Settings) (downloads.EngineFactory, error) {
	muxCfg := mux.Config{
		FFmpegPath: s.FFmpegPath,
		OutputDir:  s.DownloadDir,
	}

	client, err := stream.NewHTTPClient(s.HTTPTimeout, nil)
	if err != nil {
		return nil, err
	}
	plain := downloads.SupervisorFactory(muxCfg, client)
	if !s.Cookies.Enabled() {
		return plain, nil
	}

	return func(req models.Request, hooks mux.Hooks) (downloads.Engine, error) {
		urls := []string{req.Format.URL}
		if req.Companion != nil {
			urls = append(urls, req.Companion.URL)
		}

		cookies, err := browser.LoadCookies(s.Cookies, urls...)
		if err != nil {
			logging.W("Failed to load cookies for %q, proceeding without: %v", req.ID, err)
			return plain(req, hooks)
		}
		withCookies, err := stream.NewHTTPClient(s.HTTPTimeout, cookies)
		if err != nil {
			return nil, err
		}
		return downloads.SupervisorFactory(muxCfg, withCookies)(req, hooks)
	}, nil
}
