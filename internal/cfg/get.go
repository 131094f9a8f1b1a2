package cfg

import (
	"context"
	"fmt"
	"os"
	"strings"

	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/errs"
	"mediadl/internal/domain/keys"
	"mediadl/internal/formats"
	"mediadl/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// getOptions are the 'get' command inputs.
type getOptions struct {
	ID          string
	Title       string
	VideoURL    string
	AudioURL    string
	Catalog     string
	Quality     string
	AudioOnly   bool
	SplitTracks bool
}

// getCmd runs a single job in the foreground.
func getCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Download one item in the foreground",
		Long: "Download one item, either from a format catalog (--catalog with --quality or --audio-only)\n" +
			"or from direct stream URLs (--video-url with --audio-url, or --audio-url alone).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := getOptions{
				Title:       viper.GetString(keys.GetTitle),
				VideoURL:    viper.GetString(keys.GetVideoURL),
				AudioURL:    viper.GetString(keys.GetAudioURL),
				Catalog:     viper.GetString(keys.GetCatalog),
				Quality:     viper.GetString(keys.GetQuality),
				AudioOnly:   viper.GetBool(keys.GetAudioOnly),
				SplitTracks: viper.GetBool(keys.GetSplitTracks),
			}
			if len(args) == 1 {
				o.ID = args[0]
			}

			req, err := buildRequest(o)
			if err != nil {
				return err
			}

			s, err := loadSettings()
			if err != nil {
				return err
			}
			if err := s.prepareDownloads(); err != nil {
				return err
			}
			s.Concurrency = 1

			return runForeground(cmd.Context(), s, req)
		},
	}

	f := cmd.Flags()
	f.StringP(keys.GetTitle, "t", "", "Title used to name the output file")
	f.String(keys.GetVideoURL, "", "Direct video stream URL")
	f.String(keys.GetAudioURL, "", "Direct audio stream URL")
	f.StringP(keys.GetCatalog, "c", "", "JSON file listing the item's formats")
	f.StringP(keys.GetQuality, "q", "", "Quality label to pick from the catalog (e.g. '720p')")
	f.BoolP(keys.GetAudioOnly, "a", false, "Download audio only, as mp3")
	f.Bool(keys.GetSplitTracks, false, "Split audio into tracks on silence")

	return cmd, bindFlags(f)
}

// buildRequest turns the command inputs into a queue request.
func buildRequest(o getOptions) (models.Request, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	if o.Catalog != "" {
		catalog, err := readCatalog(o.Catalog)
		if err != nil {
			return models.Request{}, err
		}
		return requestFromCatalog(o, catalog)
	}

	switch {
	case o.AudioURL == "":
		return models.Request{}, fmt.Errorf("%w: set --%s, or --%s with --%s", errs.ErrInvalidJob, keys.GetCatalog, keys.GetAudioURL, keys.GetVideoURL)
	case o.AudioOnly || o.VideoURL == "":
		return models.Request{
			ID:          o.ID,
			Title:       o.Title,
			Format:      models.Format{URL: o.AudioURL, HasAudio: true, Extension: consts.ExtMP3},
			SplitTracks: o.SplitTracks,
		}, nil
	default:
		return models.Request{
			ID:        o.ID,
			Title:     o.Title,
			Format:    models.Format{URL: o.VideoURL, HasVideo: true, Container: consts.ExtMP4, Extension: consts.ExtMP4},
			Companion: &models.Format{URL: o.AudioURL, HasAudio: true},
		}, nil
	}
}

// requestFromCatalog picks the requested option out of a catalog. Without a
// quality the first offered option is used.
func requestFromCatalog(o getOptions, catalog []models.Format) (models.Request, error) {
	options := formats.Filter(catalog)
	if len(options) == 0 {
		return models.Request{}, fmt.Errorf("%w: catalog %q offers no downloadable formats", errs.ErrInvalidJob, o.Catalog)
	}

	quality := o.Quality
	if o.AudioOnly {
		quality = "audio"
	}

	chosen := options[0]
	if quality != "" {
		var ok bool
		if chosen, ok = formats.Lookup(options, quality); !ok {
			return models.Request{}, fmt.Errorf("%w: no %q option, available: %s", errs.ErrInvalidJob, quality, optionLabels(options))
		}
	}
	return formats.Request(o.ID, o.Title, chosen, catalog, o.SplitTracks), nil
}

// optionLabels lists the labels accepted by --quality.
func optionLabels(options []models.Format) string {
	labels := make([]string, 0, len(options))
	for _, f := range options {
		labels = append(labels, optionLabel(f))
	}
	return strings.Join(labels, ", ")
}

func optionLabel(f models.Format) string {
	if f.AudioOnly() {
		return "audio"
	}
	return f.QualityLabel
}

// runForeground runs one job to completion, rendering its progress.
func runForeground(ctx context.Context, s Settings, req models.Request) error {
	rt, err := newRuntime(s)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rt.start(ctx)

	sub, err := rt.queue.Submit(req)
	if err != nil {
		return err
	}
	defer sub.Close()

	queueDone := make(chan error, 1)
	go func() {
		queueDone <- rt.queue.Run(ctx)
	}()

	printer := newProgressPrinter(os.Stdout)
	var last models.Progress
	for p := range sub.C {
		printer.print(p)
		last = p
	}

	cancel()
	if err := <-queueDone; err != nil {
		return err
	}

	switch last.Status {
	case consts.StatusFinished:
		return nil
	case consts.StatusStopped:
		return errs.ErrCanceled
	default:
		return fmt.Errorf("download %s: %s", last.Status, last.Error)
	}
}
