package downloads

import (
	"fmt"
	"net/http"

	"mediadl/internal/domain/errs"
	"mediadl/internal/models"
	"mediadl/internal/mux"
	"mediadl/internal/stream"
)

// EngineFactory builds the engine for a request. hooks must receive every
// progress snapshot and transport change.
type EngineFactory func(req models.Request, hooks mux.Hooks) (Engine, error)

// SupervisorFactory returns an EngineFactory running each job through ffmpeg.
func SupervisorFactory(cfg mux.Config, client *http.Client) EngineFactory {
	return func(req models.Request, hooks mux.Hooks) (Engine, error) {
		in := mux.Inputs{Title: req.Title}

		if req.AudioOnly() {
			in.Mode = mux.ModeAudio
			in.Audio = stream.ForFormat(client, req.Format)
			in.SplitTracks = req.SplitTracks
		} else {
			if req.Companion == nil {
				return nil, fmt.Errorf("%w: video format %q has no companion audio", errs.ErrInvalidJob, req.Format.QualityLabel)
			}
			in.Mode = mux.ModeVideo
			in.Video = stream.ForFormat(client, req.Format)
			in.Audio = stream.ForFormat(client, *req.Companion)
		}
		return mux.New(cfg, in, hooks), nil
	}
}
