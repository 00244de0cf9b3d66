package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"co2-mcs/internal/metrics"
	"co2-mcs/internal/runner"
	"co2-mcs/internal/store"
)

// runFlags are shared by the deterministic, simulate and phased commands.
type runFlags struct {
	sources     runner.Sources
	outDir      string
	sqlitePath  string
	metricsFile string
	draws       int
	seed        uint64
	workers     int
	format      string
	noHistory   bool
}

func (f *runFlags) register(cmd *cobra.Command, phases bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.sources.Bundle, "bundle", "", "YAML or JSON scenario bundle")
	fs.StringVar(&f.sources.Params, "params", "", "scenario parameter CSV (scenario, class, param, value, low, high)")
	fs.StringVar(&f.sources.Factors, "factors", "", "emission factor CSV (fuel_type, co2_per_unit)")
	if phases {
		fs.StringVar(&f.sources.Phases, "phases", "", "phase definition CSV")
	}
	fs.StringVar(&f.outDir, "out", "", "directory for output tables (default OUTPUT_DIR)")
	fs.StringVar(&f.sqlitePath, "sqlite", "", "SQLite database receiving the output tables (default SQLITE_PATH)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Prometheus textfile for run diagnostics (default METRICS_FILE)")
	fs.IntVar(&f.draws, "draws", 0, "number of Monte Carlo draws (overrides n_draws)")
	fs.Uint64Var(&f.seed, "seed", 0, "random seed (overrides seed)")
	fs.IntVar(&f.workers, "workers", -1, "worker goroutines, 0 for GOMAXPROCS")
	fs.StringVar(&f.format, "format", "table", "stdout format: table or json")
	fs.BoolVar(&f.noHistory, "no-history", false, "do not record the run in the run log")
}

func (f *runFlags) options(cmd *cobra.Command) (runner.Options, error) {
	sim := cfg.Simulation
	if cmd.Flags().Changed("draws") {
		sim.NDraws = f.draws
	}
	if cmd.Flags().Changed("seed") {
		sim.Seed = f.seed
	}
	if f.workers >= 0 {
		sim.Workers = f.workers
	}

	opts := runner.Options{
		Simulation:  sim,
		OutputDir:   firstNonEmpty(f.outDir, cfg.OutputDir),
		SQLitePath:  firstNonEmpty(f.sqlitePath, cfg.SQLitePath),
		MetricsFile: firstNonEmpty(f.metricsFile, cfg.MetricsFile),
	}
	if opts.MetricsFile != "" {
		opts.Metrics = metrics.New()
	}
	if !f.noHistory {
		runs, err := store.OpenRunLog(cfg.CacheDir)
		if err != nil {
			return opts, err
		}
		opts.RunLog = runs
	}
	return opts, nil
}

type runFunc func(r *runner.Runner, ctx context.Context, in *runner.Inputs) (*runner.Report, error)

func newRunCommand(use, short string, phases bool, run runFunc) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			in, err := runner.Load(f.sources)
			if err != nil {
				return err
			}
			rep, err := run(runner.New(opts), cmd.Context(), in)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), rep, f.format)
		},
	}
	f.register(cmd, phases)
	return cmd
}

func printReport(w io.Writer, rep *runner.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep.Manifest)
	case "table":
		m := rep.Manifest
		fmt.Fprintf(w, "run %s (%s, seed %d, %d draws)\n", m.RunID, m.Mode, m.Seed, m.NDraws)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "scenario\tmedian kgCO2\tp5\tp95\t")
		for _, s := range m.Totals {
			fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t\n", s.Scenario, s.Median, s.P5, s.P95)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, s := range m.Skipped {
			fmt.Fprintf(w, "skipped %s: %s\n", s.Scenario, s.Reason)
		}
		if m.DegenerateSamples > 0 || m.RejectionExhausted > 0 {
			fmt.Fprintf(w, "diagnostics: %d degenerate samples, %d rejection-exhausted samples\n", m.DegenerateSamples, m.RejectionExhausted)
		}
		for _, o := range m.Outputs {
			fmt.Fprintf(w, "wrote %s\n", o)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(
		newRunCommand("deterministic", "Evaluate every scenario once at nominal values", false, (*runner.Runner).Deterministic),
		newRunCommand("simulate", "Run the Monte Carlo simulation and write percentile tables", false, (*runner.Runner).Simulate),
		newRunCommand("phased", "Re-sample campaign phases on top of the deterministic baseline", true, (*runner.Runner).Phased),
	)
}
