package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"co2-mcs/internal/model"
)

// Output file names written by WriteOutputs.
const (
	FileDaily        = "daily_emissions.csv"
	FileDrawDaily    = "draw_daily_emissions.csv"
	FileDaySummary   = "summary_by_day.csv"
	FileTotalSummary = "summary_totals.csv"
	FileDrawTotals   = "draw_totals.csv"
	FilePhaseLengths = "phase_lengths.csv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeRows(w io.Writer, head []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(head); err != nil {
		return err
	}
	for i := range n {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDaily writes deterministic daily emissions (scenario, class, day, emissions_kgCO2).
func WriteDaily(w io.Writer, records []model.DailyEmissionRecord) error {
	return writeRows(w, []string{"scenario", "class", "day", "emissions_kgCO2"}, len(records), func(i int) []string {
		r := records[i]
		return []string{r.Scenario, string(r.Class), strconv.Itoa(r.Day), formatFloat(r.EmissionsKgCO2)}
	})
}

// WriteDrawDaily writes per-draw daily emissions.
func WriteDrawDaily(w io.Writer, records []model.DailyEmissionRecord) error {
	return writeRows(w, []string{"scenario", "draw", "class", "day", "emissions_kgCO2"}, len(records), func(i int) []string {
		r := records[i]
		return []string{r.Scenario, strconv.Itoa(r.Draw), string(r.Class), strconv.Itoa(r.Day), formatFloat(r.EmissionsKgCO2)}
	})
}

// WriteDaySummary writes (scenario, day, med, p5, p95).
func WriteDaySummary(w io.Writer, rows []model.Summary) error {
	return writeRows(w, []string{"scenario", "day", "med", "p5", "p95"}, len(rows), func(i int) []string {
		s := rows[i]
		return []string{s.Scenario, strconv.Itoa(s.Day), formatFloat(s.Median), formatFloat(s.P5), formatFloat(s.P95)}
	})
}

// WriteTotalSummary writes (scenario, med, p5, p95).
func WriteTotalSummary(w io.Writer, rows []model.Summary) error {
	return writeRows(w, []string{"scenario", "med", "p5", "p95"}, len(rows), func(i int) []string {
		s := rows[i]
		return []string{s.Scenario, formatFloat(s.Median), formatFloat(s.P5), formatFloat(s.P95)}
	})
}

// WriteDrawTotals writes (scenario, draw, total).
func WriteDrawTotals(w io.Writer, rows []model.DrawTotal) error {
	return writeRows(w, []string{"scenario", "draw", "total"}, len(rows), func(i int) []string {
		t := rows[i]
		return []string{t.Scenario, strconv.Itoa(t.Draw), formatFloat(t.TotalKgCO2)}
	})
}

// WritePhaseLengths writes (scenario, draw, phase, days).
func WritePhaseLengths(w io.Writer, rows []model.PhaseLengthDraw) error {
	return writeRows(w, []string{"scenario", "draw", "phase", "days"}, len(rows), func(i int) []string {
		l := rows[i]
		return []string{l.Scenario, strconv.Itoa(l.Draw), strconv.Itoa(l.Phase), strconv.Itoa(l.Days)}
	})
}

// WriteFile writes one table to dir/name through a temporary file and rename,
// so a failed run never leaves a truncated table behind.
func WriteFile(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", err
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}
