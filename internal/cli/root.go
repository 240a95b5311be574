package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/logger"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type rootOptions struct {
	server  string
	timeout time.Duration
	verbose bool
}

func (o *rootOptions) api() (*APIClient, error) {
	return NewAPIClient(o.server, o.timeout)
}

// NewRootCmd собирает дерево команд signalctl.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "signalctl",
		Short: "Operate a videomeet signaling server",
		Long: `signalctl manages rooms over the REST API, watches room traffic over
the signaling socket and probes end-to-end WebRTC connectivity through the relay.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			lvl := slog.LevelWarn
			if opts.verbose {
				lvl = slog.LevelDebug
			}
			logger.Init(logger.Config{
				Service: "signalctl",
				Env:     logger.EnvDev,
				Backend: logger.BackendStd,
				Level:   lvl,
				Output:  cmd.ErrOrStderr(),
			})
		},
	}

	server := os.Getenv("SIGNALCTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", server, "signaling server address (env SIGNALCTL_SERVER)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "REST request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newRoomsCmd(opts),
		newStatsCmd(opts),
		newWatchCmd(opts),
		newProbeCmd(opts),
	)
	return root
}
