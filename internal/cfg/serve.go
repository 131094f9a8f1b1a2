package cfg

import (
	"context"
	"errors"

	"mediadl/internal/domain/keys"
	netutil "mediadl/internal/net"
	"mediadl/internal/server"
	"mediadl/internal/utils/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd runs the queue behind the HTTP API until interrupted.
func serveCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the download queue behind the HTTP API",
		Long:  "Serve the job queue over HTTP/JSON, with a server-sent-events progress stream per job.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if err := s.prepareDownloads(); err != nil {
				return err
			}

			rt, err := newRuntime(s)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			rt.start(ctx)

			queueDone := make(chan error, 1)
			go func() {
				queueDone <- rt.queue.Run(ctx)
			}()

			addr := viper.GetString(keys.ListenAddr)
			if !netutil.IsPrivateNetwork(addr) {
				logging.W("HTTP API on %q is reachable beyond private networks and has no authentication", addr)
			}

			logging.I("Downloading to %q with up to %d concurrent jobs", s.DownloadDir, s.Concurrency)
			srvErr := server.StartServer(ctx, addr, server.NewRouter(rt.queue, rt.store))

			cancel()
			return errors.Join(srvErr, <-queueDone)
		},
	}

	f := cmd.Flags()
	f.String(keys.ListenAddr, server.DefaultAddr, "Address the HTTP API listens on")
	f.IntP(keys.Concurrency, "l", viper.GetInt(keys.Concurrency), "Maximum concurrent downloads")
	f.Duration(keys.TickInterval, viper.GetDuration(keys.TickInterval), "Queue admission interval")
	f.Duration(keys.EvictionGrace, viper.GetDuration(keys.EvictionGrace), "How long finished jobs stay visible")

	return cmd, bindFlags(f)
}
