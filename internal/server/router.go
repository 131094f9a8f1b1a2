// Package server exposes the download queue over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"mediadl/internal/contracts"
	"mediadl/internal/domain/consts"
	"mediadl/internal/downloads"
	"mediadl/internal/models"
	"mediadl/internal/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "127.0.0.1:8827"

// JobQueue is the queue surface the API drives.
type JobQueue interface {
	Submit(req models.Request) (*downloads.Subscription, error)
	Pause(id string) error
	Resume(id string) error
	Stop(id string) error
	Subscribe(id string) (*downloads.Subscription, error)
	Snapshot(id string) (models.Progress, error)
	List() []models.Progress
}

type api struct {
	queue JobQueue
	ds    contracts.DownloadStore
}

// NewRouter returns the API handler. ds may be nil when the journal is disabled.
func NewRouter(q JobQueue, ds contracts.DownloadStore) http.Handler {
	a := &api{queue: q, ds: ds}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", a.handleListJobs)
			r.Post("/", a.handleSubmitJob)
			r.Get("/{id}", a.handleGetJob)
			r.Post("/{id}/pause", a.handleControl(q.Pause))
			r.Post("/{id}/resume", a.handleControl(q.Resume))
			r.Post("/{id}/stop", a.handleControl(q.Stop))
			r.Get("/{id}/events", a.handleJobEvents)
		})
		r.Get("/history", a.handleHistory)
		r.Post("/formats", handleFormats)
	})

	return r
}

// requestLogger logs each request through the program logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logging.Logger().Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// StartServer serves the API on addr until ctx is done.
func StartServer(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: consts.ServerReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logging.S("mediadl server running on http://%s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), consts.ServerShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
