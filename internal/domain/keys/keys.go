// Package keys holds the viper configuration keys.
package keys

// Terminal keys
const (
	ConfigFile  string = "config-file"
	DownloadDir string = "download-dir"
	FFmpegPath  string = "ffmpeg-path"
	DebugLevel  string = "debug"
	LogFile     string = "log-file"
	DBPath      string = "db-path"
	NoJournal   string = "no-journal"
)

// Queue
const (
	Concurrency   string = "concurrency"
	TickInterval  string = "tick-interval"
	EvictionGrace string = "eviction-grace"
)

// Network
const (
	ListenAddr         string = "listen"
	CookiesFromBrowser string = "cookies-from-browser"
	CookieFile         string = "cookie-file"
	HTTPTimeout        string = "http-timeout"
)

// Single job ('get' command)
const (
	GetTitle       string = "title"
	GetVideoURL    string = "video-url"
	GetAudioURL    string = "audio-url"
	GetCatalog     string = "catalog"
	GetQuality     string = "quality"
	GetAudioOnly   string = "audio-only"
	GetSplitTracks string = "split-tracks"
)

// History
const (
	HistoryLimit string = "limit"
)
