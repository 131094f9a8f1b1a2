package cfg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/errs"
	"mediadl/internal/domain/keys"
	"mediadl/internal/utils/browser"

	"github.com/spf13/viper"
)

// Settings holds the resolved program settings for one run.
type Settings struct {
	DownloadDir string
	FFmpegPath  string
	DBPath      string
	NoJournal   bool

	Concurrency   int
	TickInterval  time.Duration
	EvictionGrace time.Duration
	HTTPTimeout   time.Duration

	Cookies browser.Source
}

// loadSettings reads and validates the viper settings.
func loadSettings() (Settings, error) {
	s := Settings{
		DownloadDir:   viper.GetString(keys.DownloadDir),
		FFmpegPath:    viper.GetString(keys.FFmpegPath),
		DBPath:        viper.GetString(keys.DBPath),
		NoJournal:     viper.GetBool(keys.NoJournal),
		Concurrency:   viper.GetInt(keys.Concurrency),
		TickInterval:  viper.GetDuration(keys.TickInterval),
		EvictionGrace: viper.GetDuration(keys.EvictionGrace),
		HTTPTimeout:   viper.GetDuration(keys.HTTPTimeout),
		Cookies: browser.Source{
			Browser:    viper.GetString(keys.CookiesFromBrowser),
			CookieFile: viper.GetString(keys.CookieFile),
		},
	}

	switch {
	case s.Concurrency < 1:
		return s, fmt.Errorf("invalid %s %d, must be at least 1", keys.Concurrency, s.Concurrency)
	case s.TickInterval <= 0:
		return s, fmt.Errorf("invalid %s %v, must be positive", keys.TickInterval, s.TickInterval)
	case s.EvictionGrace < 0:
		return s, fmt.Errorf("invalid %s %v, must not be negative", keys.EvictionGrace, s.EvictionGrace)
	case s.DownloadDir == "":
		return s, fmt.Errorf("no %s set", keys.DownloadDir)
	case !s.NoJournal && s.DBPath == "":
		return s, fmt.Errorf("no %s set (use --%s to run without a journal)", keys.DBPath, keys.NoJournal)
	}
	return s, nil
}

// prepareDownloads locates ffmpeg and creates the download directory.
func (s *Settings) prepareDownloads() error {
	ffmpeg, err := resolveFFmpeg(s.FFmpegPath)
	if err != nil {
		return err
	}
	s.FFmpegPath = ffmpeg

	if err := os.MkdirAll(s.DownloadDir, consts.PermsOutputDir); err != nil {
		return fmt.Errorf("failed to create download directory %q: %w", s.DownloadDir, err)
	}
	return nil
}

// resolveFFmpeg locates the ffmpeg binary: a configured name or path first,
// then ffmpeg on PATH.
func resolveFFmpeg(configured string) (string, error) {
	preferred := strings.TrimSpace(configured)

	if preferred != "" {
		if resolved, err := exec.LookPath(preferred); err == nil {
			return resolved, nil
		}
		if info, err := os.Stat(preferred); err == nil && !info.IsDir() {
			return preferred, nil
		}
		return "", fmt.Errorf("%w: configured binary %q not found", errs.ErrNoFFmpeg, preferred)
	}

	resolved, err := exec.LookPath("ffmpeg")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: install ffmpeg or set --%s", errs.ErrNoFFmpeg, keys.FFmpegPath)
		}
		return "", fmt.Errorf("%w: %w", errs.ErrNoFFmpeg, err)
	}
	return resolved, nil
}
