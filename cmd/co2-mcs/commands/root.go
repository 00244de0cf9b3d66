package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"co2-mcs/internal/config"
	"co2-mcs/internal/logging"
	"co2-mcs/internal/mcp"
	"co2-mcs/internal/store"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	runFile string
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "co2-mcs",
	Short: "Monte Carlo estimates of fuel-use CO2 emissions for conflict scenarios",
	Long: `co2-mcs builds a parameter matrix from scenario tables, propagates parameter
uncertainty through per-class daily fuel models and reports median, p5 and p95
emissions. Without a subcommand it serves the same engines as MCP tools over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			log.Warn().Err(err).Msg("File logging disabled")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		if runFile != "" {
			if cfg.Simulation, err = config.LoadRunFile(runFile, cfg.Simulation); err != nil {
				return err
			}
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("co2-mcs starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	runs, err := store.OpenRunLog(cfg.CacheDir)
	if err != nil {
		return err
	}
	return mcp.NewServer(cfg, runs, Version).Start(ctx)
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&runFile, "config", "", "YAML run file overriding simulation options")
	rootCmd.AddCommand(serveCmd)
}
