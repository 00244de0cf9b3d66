package phasing

import (
	"context"
	"runtime"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"co2-mcs/internal/config"
	"co2-mcs/internal/model"
	"co2-mcs/internal/sampling"
)

// Engine runs the phased Monte Carlo.
type Engine struct {
	cfg config.SimulationConfig
}

// Result holds per-draw phased daily records in canonical order
// (scenario, draw, class, day) and the sampled phase lengths.
type Result struct {
	Records   []model.DailyEmissionRecord `json:"records"`
	Lengths   []model.PhaseLengthDraw     `json:"phase_lengths"`
	Scenarios []string                    `json:"scenarios"`
	Skipped   []model.ScenarioSkipped     `json:"skipped,omitempty"`
	NDraws    int                         `json:"n_draws"`
	Seed      uint64                      `json:"seed"`
}

// NewEngine creates a phasing engine bound to cfg.
func NewEngine(cfg config.SimulationConfig) *Engine {
	return &Engine{cfg: cfg}
}

// baselineSeries is one scenario's baseline, one daily series per class.
type baselineSeries struct {
	classes []model.Class
	days    map[model.Class][]float64
}

type phasedDraw struct {
	records []model.DailyEmissionRecord
	lengths []model.PhaseLengthDraw
}

// Run re-samples tempo for every scenario that has both phases and baseline
// records. baseline holds one record per (scenario, class, day), typically the
// deterministic engine's output. A scenario with a duration but no baseline
// records is skipped as an empty parameter matrix, one with baseline but no
// phases as having no phases. Both are reported in Result.Skipped.
func (e *Engine) Run(ctx context.Context, baseline []model.DailyEmissionRecord, phases []model.Phase, durations map[string]int, nDraws int, seed uint64) (*Result, error) {
	if nDraws <= 0 {
		return nil, model.Configf("", "", "n_draws must be positive, got %d", nDraws)
	}
	plans, err := BuildPlans(phases, durations, e.cfg)
	if err != nil {
		return nil, err
	}
	series, err := indexBaseline(baseline, durations)
	if err != nil {
		return nil, err
	}

	res := &Result{NDraws: nDraws, Seed: seed}
	for name := range durations {
		if _, ok := series[name]; !ok {
			res.Skipped = append(res.Skipped, model.ScenarioSkipped{Scenario: name, Reason: model.ReasonEmptyMatrix})
		}
	}
	var runnable []Plan
	planned := make(map[string]bool, len(plans))
	for _, p := range plans {
		planned[p.Scenario] = true
		if _, ok := series[p.Scenario]; ok {
			runnable = append(runnable, p)
		}
	}
	for _, name := range sortedKeys(series) {
		if !planned[name] {
			res.Skipped = append(res.Skipped, model.ScenarioSkipped{Scenario: name, Reason: "no phases defined"})
		}
	}
	sort.Slice(res.Skipped, func(i, j int) bool { return res.Skipped[i].Scenario < res.Skipped[j].Scenario })
	for _, s := range res.Skipped {
		log.Warn().Str("scenario", s.Scenario).Str("reason", s.Reason).Msg("Phased scenario skipped")
	}

	log.Info().
		Int("scenarios", len(runnable)).
		Int("draws", nDraws).
		Uint64("seed", seed).
		Msg("Phased run starting")

	slots := make([][]phasedDraw, len(runnable))
	for i := range slots {
		slots[i] = make([]phasedDraw, nDraws)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

dispatch:
	for pi := range runnable {
		for d := 1; d <= nDraws; d++ {
			if gctx.Err() != nil {
				break dispatch
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := e.phaseDraw(runnable[pi], series[runnable[pi].Scenario], d, seed)
				if err != nil {
					return err
				}
				slots[pi][d-1] = out
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

	for pi, p := range runnable {
		res.Scenarios = append(res.Scenarios, p.Scenario)
		for _, o := range slots[pi] {
			res.Records = append(res.Records, o.records...)
			res.Lengths = append(res.Lengths, o.lengths...)
		}
	}

	log.Info().
		Int("records", len(res.Records)).
		Int("phaseDraws", len(res.Lengths)).
		Msg("Phased run finished")
	return res, nil
}

// phaseDraw allocates phase lengths, then draws one multiplier per (phase, class)
// in phase then class order from the same sub-stream.
func (e *Engine) phaseDraw(plan Plan, base baselineSeries, draw int, seed uint64) (phasedDraw, error) {
	src := sampling.NewStream(seed, sampling.LabelPhasing, plan.Scenario, draw)
	counts, err := sampling.AllocatePhaseLengths(src, plan.Nominal, plan.SD, plan.Total, e.cfg.MinPhaseDays)
	if err != nil {
		return phasedDraw{}, model.Configf(plan.Scenario, "", "%v", err)
	}

	mult := make([]map[model.Class]float64, len(plan.Phases))
	for i, p := range plan.Phases {
		mult[i] = make(map[model.Class]float64, len(base.classes))
		for _, c := range base.classes {
			mult[i][c] = sampling.LogNormalMultiplier(src, Multiplier(p, c), e.cfg.SDLogMult)
		}
	}

	out := phasedDraw{
		records: make([]model.DailyEmissionRecord, 0, plan.Total*len(base.classes)),
		lengths: make([]model.PhaseLengthDraw, len(counts)),
	}
	for i, c := range counts {
		out.lengths[i] = model.PhaseLengthDraw{Scenario: plan.Scenario, Draw: draw, Phase: plan.Phases[i].Index, Days: c}
	}

	dayPhase := sampling.DayPhases(counts)
	for _, c := range base.classes {
		days := base.days[c]
		for d, phase := range dayPhase {
			out.records = append(out.records, model.DailyEmissionRecord{
				Scenario:       plan.Scenario,
				Class:          c,
				Day:            d + 1,
				Draw:           draw,
				EmissionsKgCO2: days[d] * mult[phase][c],
			})
		}
	}
	return out, nil
}

func (e *Engine) workers() int {
	if e.cfg.Workers > 0 {
		return e.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// indexBaseline turns baseline records into dense per-class day series of the
// scenario's duration. Days with no record stay zero.
func indexBaseline(baseline []model.DailyEmissionRecord, durations map[string]int) (map[string]baselineSeries, error) {
	type dayKey struct {
		scenario string
		class    model.Class
		day      int
	}
	seen := make(map[dayKey]bool, len(baseline))
	out := make(map[string]baselineSeries)
	for _, r := range baseline {
		total, ok := durations[r.Scenario]
		if !ok || total <= 0 {
			continue
		}
		if r.Day < 1 || r.Day > total {
			return nil, model.Configf(r.Scenario, r.Class, "baseline day %d outside 1..%d", r.Day, total)
		}
		k := dayKey{r.Scenario, r.Class, r.Day}
		if seen[k] {
			return nil, model.Configf(r.Scenario, r.Class, "duplicate baseline record for day %d", r.Day)
		}
		seen[k] = true

		s, ok := out[r.Scenario]
		if !ok {
			s = baselineSeries{days: make(map[model.Class][]float64)}
		}
		days, ok := s.days[r.Class]
		if !ok {
			days = make([]float64, total)
			s.classes = append(s.classes, r.Class)
		}
		if v := r.EmissionsKgCO2; v > 0 {
			days[r.Day-1] = v
		}
		s.days[r.Class] = days
		out[r.Scenario] = s
	}

	for name, s := range out {
		sort.Slice(s.classes, func(i, j int) bool { return s.classes[i].Rank() < s.classes[j].Rank() })
		out[name] = s
	}
	return out, nil
}

func sortedKeys(m map[string]baselineSeries) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
