package cfg

import (
	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/keys"
	"mediadl/internal/domain/paths"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// initProgramFlags initializes settings shared by every command. E.g. logging level.
func initProgramFlags(rootCmd *cobra.Command) error {
	pf := rootCmd.PersistentFlags()

	// Program files
	pf.String(keys.ConfigFile, "", "Config file (any format viper reads: yaml, json, toml...)")
	pf.String(keys.LogFile, paths.LogFilePath, "Log file path (empty logs to the console only)")
	pf.String(keys.DBPath, paths.DBFilePath, "Job journal database path")
	pf.Bool(keys.NoJournal, false, "Do not record job status transitions")

	// Downloads
	pf.String(keys.DownloadDir, paths.DefaultDownloadDir, "Directory downloads are written to")
	pf.String(keys.FFmpegPath, "", "ffmpeg binary (defaults to ffmpeg on PATH)")

	// Network
	pf.String(keys.CookiesFromBrowser, "", "Browser to read stream cookies from (e.g. 'firefox')")
	pf.String(keys.CookieFile, "", "Browser cookie database to read stream cookies from")
	pf.Duration(keys.HTTPTimeout, consts.HTTPResponseTimeout, "Time to wait for stream response headers")

	// Debug level
	pf.Int(keys.DebugLevel, 0, "Debugging level (0 - 5)")

	// Queue defaults for commands without queue flags
	viper.SetDefault(keys.Concurrency, consts.DefaultConcurrency)
	viper.SetDefault(keys.TickInterval, consts.QueueTickInterval)
	viper.SetDefault(keys.EvictionGrace, consts.EvictionGrace)

	return bindFlags(pf)
}

// bindFlags binds every flag in the set to the viper key of the same name.
func bindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = viper.BindPFlag(f.Name, f)
	})
	return err
}
