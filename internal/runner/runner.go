package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"co2-mcs/internal/config"
	"co2-mcs/internal/emissions"
	"co2-mcs/internal/metrics"
	"co2-mcs/internal/model"
	"co2-mcs/internal/params"
	"co2-mcs/internal/phasing"
	"co2-mcs/internal/simulation"
	"co2-mcs/internal/stats"
	"co2-mcs/internal/store"
	"co2-mcs/internal/tables"
)

// Options selects the simulation settings and the sinks of a run.
// Every sink is optional.
type Options struct {
	Simulation  config.SimulationConfig
	OutputDir   string
	SQLitePath  string
	MetricsFile string
	RunLog      *store.RunLog
	Metrics     *metrics.Metrics
}

// Report is everything a run produced.
type Report struct {
	Manifest      store.Manifest              `json:"manifest"`
	Deterministic []model.DailyEmissionRecord `json:"deterministic,omitempty"`
	Records       []model.DailyEmissionRecord `json:"-"`
	PhaseLengths  []model.PhaseLengthDraw     `json:"-"`
	Summaries     stats.Summaries             `json:"summaries"`
}

// output is one CSV table of a run.
type output struct {
	name  string
	write func(io.Writer) error
}

// Runner executes runs against fixed options.
type Runner struct {
	opts Options
}

// New creates a runner.
func New(opts Options) *Runner {
	return &Runner{opts: opts}
}

func (r *Runner) matrix(in *Inputs) ([]model.ParameterMatrixRow, error) {
	if err := r.opts.Simulation.Validate(); err != nil {
		return nil, err
	}
	return params.Build(in.Parameters, in.EmissionFactors)
}

// Deterministic evaluates every scenario at nominal values.
func (r *Runner) Deterministic(ctx context.Context, in *Inputs) (*Report, error) {
	start := time.Now()
	pmat, err := r.matrix(in)
	if err != nil {
		return nil, err
	}
	daily := emissions.Deterministic(pmat)

	rep := &Report{Manifest: store.NewManifest(store.ModeDeterministic), Deterministic: daily}
	rep.Manifest.Source = in.Source
	rep.Summaries = stats.Summarize(daily)
	rep.Manifest.Scenarios = scenarioNames(pmat)
	rep.Manifest.Totals = rep.Summaries.Totals
	for _, name := range params.EmptyScenarios(pmat) {
		log.Warn().Str("scenario", name).Str("reason", model.ReasonEmptyMatrix).Msg("Scenario skipped")
		rep.Manifest.Skipped = append(rep.Manifest.Skipped, model.ScenarioSkipped{Scenario: name, Reason: model.ReasonEmptyMatrix})
	}

	err = r.persist(ctx, rep, []output{
		{tables.FileDaily, func(w io.Writer) error { return tables.WriteDaily(w, daily) }},
		{tables.FileTotalSummary, func(w io.Writer) error { return tables.WriteTotalSummary(w, rep.Summaries.Totals) }},
	}, store.Tables{Daily: daily, Totals: rep.Summaries.Totals}, time.Since(start), 0)
	return rep, err
}

// Simulate runs the base Monte Carlo and aggregates it.
func (r *Runner) Simulate(ctx context.Context, in *Inputs) (*Report, error) {
	start := time.Now()
	pmat, err := r.matrix(in)
	if err != nil {
		return nil, err
	}

	cfg := r.opts.Simulation
	res, err := simulation.NewEngine(cfg).Run(ctx, pmat, cfg.NDraws, cfg.Seed)
	if err != nil {
		return nil, err
	}

	rep := &Report{Manifest: store.NewManifest(store.ModeSimulate), Records: res.Records}
	m := &rep.Manifest
	m.Source = in.Source
	m.Seed = res.Seed
	m.NDraws = res.NDraws
	m.Scenarios = res.Scenarios
	m.Skipped = res.Skipped
	m.DegenerateSamples = res.Diagnostics.DegenerateSamples
	m.RejectionExhausted = res.Diagnostics.RejectionExhausted
	rep.Summaries = stats.Summarize(res.Records)
	m.Totals = rep.Summaries.Totals

	err = r.persist(ctx, rep, r.ensembleOutputs(rep), store.Tables{
		Daily:      res.Records,
		DaySummary: rep.Summaries.ByDay,
		Totals:     rep.Summaries.Totals,
		DrawTotals: rep.Summaries.DrawTotals,
	}, time.Since(start), res.Diagnostics.Draws)
	return rep, err
}

// Phased re-samples tempo on top of the deterministic baseline.
func (r *Runner) Phased(ctx context.Context, in *Inputs) (*Report, error) {
	start := time.Now()
	if len(in.Phases) == 0 {
		return nil, model.Configf("", "", "phased run needs phase definitions")
	}
	pmat, err := r.matrix(in)
	if err != nil {
		return nil, err
	}

	cfg := r.opts.Simulation
	baseline := emissions.Deterministic(pmat)
	res, err := phasing.NewEngine(cfg).Run(ctx, baseline, in.Phases, params.Durations(pmat), cfg.NDraws, cfg.Seed)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Manifest:     store.NewManifest(store.ModePhased),
		Records:      res.Records,
		PhaseLengths: res.Lengths,
	}
	m := &rep.Manifest
	m.Source = in.Source
	m.Seed = res.Seed
	m.NDraws = res.NDraws
	m.Scenarios = res.Scenarios
	m.Skipped = res.Skipped
	rep.Summaries = stats.Summarize(res.Records)
	m.Totals = rep.Summaries.Totals

	outputs := append(r.ensembleOutputs(rep), output{tables.FilePhaseLengths, func(w io.Writer) error {
		return tables.WritePhaseLengths(w, res.Lengths)
	}})
	err = r.persist(ctx, rep, outputs, store.Tables{
		Daily:        res.Records,
		DaySummary:   rep.Summaries.ByDay,
		Totals:       rep.Summaries.Totals,
		DrawTotals:   rep.Summaries.DrawTotals,
		PhaseLengths: res.Lengths,
	}, time.Since(start), len(res.Scenarios)*res.NDraws)
	return rep, err
}

func (r *Runner) ensembleOutputs(rep *Report) []output {
	return []output{
		{tables.FileDrawDaily, func(w io.Writer) error { return tables.WriteDrawDaily(w, rep.Records) }},
		{tables.FileDaySummary, func(w io.Writer) error { return tables.WriteDaySummary(w, rep.Summaries.ByDay) }},
		{tables.FileTotalSummary, func(w io.Writer) error { return tables.WriteTotalSummary(w, rep.Summaries.Totals) }},
		{tables.FileDrawTotals, func(w io.Writer) error { return tables.WriteDrawTotals(w, rep.Summaries.DrawTotals) }},
	}
}

// persist writes the run to every configured sink. The first failure is
// returned after the remaining sinks have been attempted.
func (r *Runner) persist(ctx context.Context, rep *Report, outputs []output, t store.Tables, took time.Duration, draws int) error {
	var errs []error
	m := &rep.Manifest

	if r.opts.OutputDir != "" {
		dir := filepath.Join(r.opts.OutputDir, m.RunID)
		for _, o := range outputs {
			path, err := tables.WriteFile(dir, o.name, o.write)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			m.Outputs = append(m.Outputs, path)
		}
	}

	if r.opts.SQLitePath != "" {
		if err := writeSQLite(ctx, r.opts.SQLitePath, *m, t); err != nil {
			errs = append(errs, err)
		} else {
			m.Outputs = append(m.Outputs, r.opts.SQLitePath)
		}
	}

	if r.opts.Metrics != nil {
		r.opts.Metrics.Observe(metrics.Run{
			Mode:               m.Mode,
			Draws:              draws,
			Skipped:            len(m.Skipped),
			DegenerateSamples:  m.DegenerateSamples,
			RejectionExhausted: m.RejectionExhausted,
			Duration:           took,
			Totals:             m.Totals,
		})
		if r.opts.MetricsFile != "" {
			if err := r.opts.Metrics.WriteTextfile(r.opts.MetricsFile); err != nil {
				errs = append(errs, fmt.Errorf("writing metrics textfile: %w", err))
			}
		}
	}

	if r.opts.RunLog != nil {
		if err := r.opts.RunLog.Append(*m); err != nil {
			errs = append(errs, err)
		}
	}

	log.Info().
		Str("runID", m.RunID).
		Str("mode", m.Mode).
		Int("scenarios", len(m.Scenarios)).
		Dur("took", took).
		Msg("Run complete")
	return errors.Join(errs...)
}

func writeSQLite(ctx context.Context, path string, m store.Manifest, t store.Tables) error {
	sink, err := store.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer sink.Close()
	return sink.WriteRun(ctx, m, t)
}

func scenarioNames(pmat []model.ParameterMatrixRow) []string {
	var out []string
	for _, row := range pmat {
		if row.Empty() {
			continue
		}
		if len(out) == 0 || out[len(out)-1] != row.Scenario {
			out = append(out, row.Scenario)
		}
	}
	return out
}
