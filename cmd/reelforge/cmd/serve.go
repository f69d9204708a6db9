package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davidrioja/reelforge/internal/api"
	"github.com/davidrioja/reelforge/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestration API server",
	Long: `Start the HTTP API server.

The server exposes the orchestration engine over REST plus a Server-Sent
Events stream for scene and workflow updates, and runs the automatic
repair loop in the background.

Examples:
  # Start with defaults (127.0.0.1:8080)
  reelforge serve

  # Start on a custom host and port
  reelforge serve --host 0.0.0.0 --port 3000`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"host address to bind to (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if serveHost != "" {
		eng.cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		eng.cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eng.coordinator.RunRepairLoop(ctx)
	go eng.collector.Run(ctx)

	if file := eng.loader.ConfigFile(); file != "" {
		err := config.Watch(ctx, file, eng.logger, func(*config.Config) {
			eng.logger.Info("config file changed, restart to apply server settings")
		})
		if err != nil {
			eng.logger.Warn("config watcher unavailable", "error", err)
		}
	}

	server := api.NewServer(
		eng.coordinator,
		eng.compiler,
		eng.store,
		eng.bus,
		eng.logger,
		api.WithBrandExtractor(eng.extractor),
		api.WithMetricsHandler(eng.collector.Handler()),
		api.WithCORSOrigins(eng.cfg.Server.CORSOrigins),
		api.WithRequestTimeout(eng.cfg.Server.WriteTimeout),
		api.WithExportDir(eng.cfg.Compile.ExportDir),
	)
	return server.ListenAndServe(ctx, eng.cfg.Server.Addr())
}
