package simulation

import (
	"context"
	"runtime"
	"slices"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"co2-mcs/internal/config"
	"co2-mcs/internal/emissions"
	"co2-mcs/internal/model"
	"co2-mcs/internal/sampling"
)

// Engine performs the Monte-Carlo simulation.
type Engine struct {
	cfg config.SimulationConfig
}

// Diagnostics counts conditions that were resolved silently during sampling.
type Diagnostics struct {
	Draws              int `json:"draws"`
	DegenerateSamples  int `json:"degenerate_samples"`
	RejectionExhausted int `json:"rejection_exhausted"`
}

// Add accumulates other into d.
func (d *Diagnostics) Add(other Diagnostics) {
	d.Draws += other.Draws
	d.DegenerateSamples += other.DegenerateSamples
	d.RejectionExhausted += other.RejectionExhausted
}

// Result holds every per-draw daily record of a run in canonical order
// (scenario, draw, class, day), plus the scenarios that were skipped.
type Result struct {
	Records     []model.DailyEmissionRecord `json:"records"`
	Scenarios   []string                    `json:"scenarios"`
	Skipped     []model.ScenarioSkipped     `json:"skipped,omitempty"`
	Diagnostics Diagnostics                 `json:"diagnostics"`
	NDraws      int                         `json:"n_draws"`
	Seed        uint64                      `json:"seed"`
}

// NewEngine creates an engine bound to an immutable configuration.
func NewEngine(cfg config.SimulationConfig) *Engine {
	return &Engine{cfg: cfg}
}

// scenarioRows groups the matrix rows of one scenario.
type scenarioRows struct {
	name string
	days int
	rows []model.ParameterMatrixRow
}

type drawOutcome struct {
	records []model.DailyEmissionRecord
	diag    Diagnostics
}

// Run performs nDraws independent draws for every scenario in pmat.
//
// Each (scenario, draw) consumes its own sub-stream derived from seed, so the
// output does not depend on worker scheduling and a scenario's numbers do not
// depend on which other scenarios are present. A scenario whose rows are
// malformed yields no records and is reported in Result.Skipped.
func (e *Engine) Run(ctx context.Context, pmat []model.ParameterMatrixRow, nDraws int, seed uint64) (*Result, error) {
	if nDraws <= 0 {
		return nil, model.Configf("", "", "n_draws must be positive, got %d", nDraws)
	}

	groups, skipped := groupScenarios(pmat)
	for _, s := range skipped {
		log.Warn().Str("scenario", s.Scenario).Str("reason", s.Reason).Msg("Scenario skipped")
	}

	log.Info().
		Int("scenarios", len(groups)).
		Int("draws", nDraws).
		Uint64("seed", seed).
		Msg("Monte Carlo run starting")

	slots := make([][]drawOutcome, len(groups))
	for i := range slots {
		slots[i] = make([]drawOutcome, nDraws)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

dispatch:
	for si := range groups {
		for d := 1; d <= nDraws; d++ {
			if gctx.Err() != nil {
				break dispatch
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				slots[si][d-1] = e.simulateDraw(groups[si], d, seed)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Skipped: skipped,
		NDraws:  nDraws,
		Seed:    seed,
	}
	for si, grp := range groups {
		res.Scenarios = append(res.Scenarios, grp.name)
		for _, o := range slots[si] {
			res.Records = append(res.Records, o.records...)
			res.Diagnostics.Add(o.diag)
		}
	}

	log.Info().
		Int("records", len(res.Records)).
		Int("skipped", len(res.Skipped)).
		Int("degenerate", res.Diagnostics.DegenerateSamples).
		Int("rejectionExhausted", res.Diagnostics.RejectionExhausted).
		Msg("Monte Carlo run finished")

	return res, nil
}

// simulateDraw runs one draw of one scenario. The disruption series is sampled
// first and shared by every class, modelling a common operational environment.
func (e *Engine) simulateDraw(sc scenarioRows, draw int, seed uint64) drawOutcome {
	src := sampling.NewStream(seed, sampling.LabelDraw, sc.name, draw)
	disruption := sampling.DisruptionSeries(src, sc.days, e.cfg.DisruptProb, e.cfg.DisruptFactor)

	out := drawOutcome{
		records: make([]model.DailyEmissionRecord, 0, sc.days*len(sc.rows)),
		diag:    Diagnostics{Draws: 1},
	}
	for _, row := range sc.rows {
		sv := emissions.Sample(src, row, e.cfg)
		out.diag.DegenerateSamples += sv.Degenerate
		if sv.RejectionExhausted {
			out.diag.RejectionExhausted++
		}
		out.records = append(out.records, emissions.ComputeDaily(row, sv, disruption, draw)...)
	}
	return out
}

func (e *Engine) workers() int {
	if e.cfg.Workers > 0 {
		return e.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// groupScenarios splits pmat by scenario (sorted by name, classes in canonical
// order) and sets aside scenarios whose rows cannot be simulated, including
// scenarios with no class rows at all.
func groupScenarios(pmat []model.ParameterMatrixRow) ([]scenarioRows, []model.ScenarioSkipped) {
	byName := make(map[string][]model.ParameterMatrixRow)
	for _, r := range pmat {
		byName[r.Scenario] = append(byName[r.Scenario], r)
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	var groups []scenarioRows
	var skipped []model.ScenarioSkipped
	for _, n := range names {
		rows := slices.DeleteFunc(byName[n], model.ParameterMatrixRow.Empty)
		if len(rows) == 0 {
			skipped = append(skipped, model.ScenarioSkipped{Scenario: n, Reason: model.ReasonEmptyMatrix})
			continue
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Class.Rank() < rows[j].Class.Rank()
		})

		days := rows[0].DurationDays
		reason := ""
		for _, r := range rows {
			switch {
			case r.DurationDays <= 0:
				reason = "non-positive duration_days"
			case r.DurationDays != days:
				reason = "inconsistent duration_days across classes"
			}
			if reason != "" {
				break
			}
		}
		if reason != "" {
			skipped = append(skipped, model.ScenarioSkipped{Scenario: n, Reason: reason})
			continue
		}
		groups = append(groups, scenarioRows{name: n, days: days, rows: rows})
	}
	return groups, skipped
}
