// Package cfg provides configuration and command-line interface setup for mediadl.
package cfg

import (
	"context"
	"os"
	"strings"

	"mediadl/internal/domain/keys"
	"mediadl/internal/utils/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "MEDIADL"

var rootCmd = &cobra.Command{
	Use:           "mediadl",
	Short:         "mediadl streams media through ffmpeg into local files.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup flags from config file
		if viper.IsSet(keys.ConfigFile) {
			if configFile := viper.GetString(keys.ConfigFile); configFile != "" {
				if err := loadConfigFile(configFile); err != nil {
					return err
				}
			}
		}

		if err := logging.SetupLogging(viper.GetString(keys.LogFile), viper.GetInt(keys.DebugLevel), os.Stderr); err != nil {
			logging.W("Log file was not created, proceeding without: %v", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

// InitCommands initializes all commands and their flags.
func InitCommands() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_")) // "download-dir" reads MEDIADL_DOWNLOAD_DIR
	viper.AutomaticEnv()

	if err := initProgramFlags(rootCmd); err != nil {
		return err
	}

	for _, build := range []func() (*cobra.Command, error){
		serveCmd,
		getCmd,
		formatsCmd,
		historyCmd,
	} {
		cmd, err := build()
		if err != nil {
			return err
		}
		rootCmd.AddCommand(cmd)
	}
	return nil
}

// Execute runs the command selected on the command line.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
