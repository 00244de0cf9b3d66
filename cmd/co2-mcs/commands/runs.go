package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"co2-mcs/internal/store"
	"co2-mcs/internal/tables"
)

var (
	runsLimit    int
	runsFormat   string
	runsSQLite   string
	runsScenario string
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded runs, or show one run's manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if runsSQLite != "" {
			if len(args) == 1 {
				return printStoredDrawTotals(cmd.Context(), cmd.OutOrStdout(), runsSQLite, args[0], runsScenario)
			}
			return printStoredRuns(cmd.Context(), cmd.OutOrStdout(), runsSQLite)
		}
		runs, err := store.OpenRunLog(cfg.CacheDir)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		if len(args) == 1 {
			m, ok := runs.Get(args[0])
			if !ok {
				return fmt.Errorf("run %s not found", args[0])
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		}

		list := runs.List(runsLimit)
		if runsFormat == "json" {
			return json.NewEncoder(w).Encode(list)
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN ID\tMODE\tCREATED\tSEED\tDRAWS\tSCENARIOS")
		for _, m := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", m.RunID, m.Mode, m.CreatedAt.Format("2006-01-02 15:04:05"), m.Seed, m.NDraws, len(m.Scenarios))
		}
		return tw.Flush()
	},
}

// printStoredRuns lists the run ids held in a SQLite results database.
func printStoredRuns(ctx context.Context, w io.Writer, path string) error {
	sink, err := store.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer sink.Close()

	ids, err := sink.RunIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// printStoredDrawTotals writes one scenario's per-draw totals of a stored run as CSV.
func printStoredDrawTotals(ctx context.Context, w io.Writer, path, runID, scenario string) error {
	if scenario == "" {
		return fmt.Errorf("--scenario is required to read draw totals from %s", path)
	}
	sink, err := store.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer sink.Close()

	totals, err := sink.DrawTotals(ctx, runID, scenario)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		return fmt.Errorf("run %s has no draw totals for scenario %q", runID, scenario)
	}
	return tables.WriteDrawTotals(w, totals)
}

func init() {
	runsCmd.Flags().StringVar(&runsSQLite, "sqlite", "", "read runs from this SQLite database instead of the run log")
	runsCmd.Flags().StringVar(&runsScenario, "scenario", "", "with --sqlite and a run id, the scenario whose draw totals to print")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list, 0 for all")
	runsCmd.Flags().StringVar(&runsFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(runsCmd)
}
