package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"co2-mcs/internal/model"
	"co2-mcs/internal/runner"
	"co2-mcs/internal/sampling"
	"co2-mcs/internal/stats"
	"co2-mcs/internal/store"
	"co2-mcs/internal/tables"
)

// RunArgs selects the inputs and overrides of a run.
type RunArgs struct {
	Bundle      string `json:"bundle,omitempty" jsonschema:"inline YAML or JSON scenario bundle"`
	BundlePath  string `json:"bundle_path,omitempty" jsonschema:"path of a scenario bundle, relative to DATA_PATH"`
	ParamsPath  string `json:"params_path,omitempty" jsonschema:"path of a scenario parameter CSV"`
	FactorsPath string `json:"factors_path,omitempty" jsonschema:"path of an emission factor CSV"`
	PhasesPath  string `json:"phases_path,omitempty" jsonschema:"path of a phase definition CSV"`
	NDraws      int    `json:"n_draws,omitempty" jsonschema:"number of Monte Carlo draws (default 400)"`
	Seed        uint64 `json:"seed,omitempty" jsonschema:"random seed; 0 keeps the configured seed"`
	DaySummary  bool   `json:"include_day_summary,omitempty" jsonschema:"also return the per-day percentile table"`
}

// RunOutput summarizes a completed run.
type RunOutput struct {
	RunID              string                  `json:"run_id"`
	Mode               string                  `json:"mode"`
	Seed               uint64                  `json:"seed"`
	NDraws             int                     `json:"n_draws"`
	Scenarios          []string                `json:"scenarios"`
	Totals             []model.Summary         `json:"totals"`
	ByDay              []model.Summary         `json:"by_day,omitempty"`
	Skipped            []model.ScenarioSkipped `json:"skipped,omitempty"`
	DegenerateSamples  int                     `json:"degenerate_samples"`
	RejectionExhausted int                     `json:"rejection_exhausted"`
	PhaseLengths       []PhaseLengthStat       `json:"phase_lengths,omitempty"`
	Outputs            []string                `json:"outputs,omitempty"`
}

// PhaseLengthStat describes the sampled length distribution of one phase.
type PhaseLengthStat struct {
	Scenario string  `json:"scenario"`
	Phase    int     `json:"phase"`
	Median   float64 `json:"med"`
	P5       float64 `json:"p5"`
	P95      float64 `json:"p95"`
}

func (s *Server) runnerFor(args RunArgs) (*runner.Runner, *runner.Inputs, error) {
	sim := s.cfg.Simulation
	if args.NDraws > 0 {
		sim.NDraws = args.NDraws
	}
	if args.Seed != 0 {
		sim.Seed = args.Seed
	}

	var in *runner.Inputs
	if args.Bundle != "" {
		b, err := tables.ParseBundle([]byte(args.Bundle))
		if err != nil {
			return nil, nil, err
		}
		in = runner.FromBundle(b, "inline")
	} else {
		src := runner.Sources{
			Bundle:  args.BundlePath,
			Params:  args.ParamsPath,
			Factors: args.FactorsPath,
			Phases:  args.PhasesPath,
		}.Resolve(s.cfg.DataPath)
		var err error
		if in, err = runner.Load(src); err != nil {
			return nil, nil, err
		}
	}

	r := runner.New(runner.Options{
		Simulation:  sim,
		OutputDir:   s.cfg.OutputDir,
		SQLitePath:  s.cfg.SQLitePath,
		MetricsFile: s.cfg.MetricsFile,
		RunLog:      s.runs,
		Metrics:     s.metrics,
	})
	return r, in, nil
}

func toOutput(rep *runner.Report, daySummary bool) RunOutput {
	m := rep.Manifest
	out := RunOutput{
		RunID:              m.RunID,
		Mode:               m.Mode,
		Seed:               m.Seed,
		NDraws:             m.NDraws,
		Scenarios:          m.Scenarios,
		Totals:             m.Totals,
		Skipped:            m.Skipped,
		DegenerateSamples:  m.DegenerateSamples,
		RejectionExhausted: m.RejectionExhausted,
		Outputs:            m.Outputs,
	}
	if daySummary {
		out.ByDay = rep.Summaries.ByDay
	}
	return out
}

func (s *Server) handleRunSimulation(ctx context.Context, _ *mcp.CallToolRequest, args RunArgs) (*mcp.CallToolResult, RunOutput, error) {
	r, in, err := s.runnerFor(args)
	if err != nil {
		return nil, RunOutput{}, err
	}
	rep, err := r.Simulate(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("run_simulation failed")
		return nil, RunOutput{}, err
	}
	return nil, toOutput(rep, args.DaySummary), nil
}

func (s *Server) handleRunPhasedSimulation(ctx context.Context, _ *mcp.CallToolRequest, args RunArgs) (*mcp.CallToolResult, RunOutput, error) {
	r, in, err := s.runnerFor(args)
	if err != nil {
		return nil, RunOutput{}, err
	}
	rep, err := r.Phased(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("run_phased_simulation failed")
		return nil, RunOutput{}, err
	}
	out := toOutput(rep, args.DaySummary)
	out.PhaseLengths = phaseLengthStats(rep.PhaseLengths)
	return nil, out, nil
}

func phaseLengthStats(lengths []model.PhaseLengthDraw) []PhaseLengthStat {
	type key struct {
		scenario string
		phase    int
	}
	var order []key
	days := make(map[key][]float64)
	for _, l := range lengths {
		k := key{l.Scenario, l.Phase}
		if _, ok := days[k]; !ok {
			order = append(order, k)
		}
		days[k] = append(days[k], float64(l.Days))
	}

	out := make([]PhaseLengthStat, 0, len(order))
	for _, k := range order {
		p := stats.Describe(days[k])
		out = append(out, PhaseLengthStat{Scenario: k.scenario, Phase: k.phase, Median: p.Median, P5: p.P5, P95: p.P95})
	}
	return out
}

// AllocateArgs are the inputs of a stand-alone phase allocation.
type AllocateArgs struct {
	NominalDays []float64 `json:"nominal_days" jsonschema:"nominal length of each phase in days"`
	SDDays      []float64 `json:"sd_days,omitempty" jsonschema:"standard deviation of each phase length; defaults to phase_sd_frac × nominal"`
	TotalDays   int       `json:"total_days" jsonschema:"campaign length the phases must sum to"`
	MinDays     *int      `json:"min_days,omitempty" jsonschema:"minimum days per phase (default min_phase_days)"`
	Draws       int       `json:"draws,omitempty" jsonschema:"number of allocations to sample (default 1)"`
	Seed        uint64    `json:"seed,omitempty" jsonschema:"random seed; 0 keeps the configured seed"`
}

// AllocateOutput holds one allocation per draw.
type AllocateOutput struct {
	Allocations [][]int `json:"allocations"`
}

// MaxAllocationDraws bounds a single allocate_phase_lengths call.
const MaxAllocationDraws = 10000

func (s *Server) handleAllocatePhaseLengths(ctx context.Context, _ *mcp.CallToolRequest, args AllocateArgs) (*mcp.CallToolResult, AllocateOutput, error) {
	sim := s.cfg.Simulation
	minDays := sim.MinPhaseDays
	if args.MinDays != nil {
		minDays = *args.MinDays
	}
	seed := sim.Seed
	if args.Seed != 0 {
		seed = args.Seed
	}
	draws := max(args.Draws, 1)
	if draws > MaxAllocationDraws {
		return nil, AllocateOutput{}, fmt.Errorf("draws must be at most %d, got %d", MaxAllocationDraws, draws)
	}

	sd := args.SDDays
	if len(sd) == 0 {
		sd = make([]float64, len(args.NominalDays))
		for i, n := range args.NominalDays {
			sd[i] = sim.PhaseSDFrac * n
		}
	}

	out := AllocateOutput{Allocations: make([][]int, 0, draws)}
	for d := 1; d <= draws; d++ {
		if err := ctx.Err(); err != nil {
			return nil, AllocateOutput{}, err
		}
		src := sampling.NewStream(seed, sampling.LabelPhasing, "allocate", d)
		counts, err := sampling.AllocatePhaseLengths(src, args.NominalDays, sd, args.TotalDays, minDays)
		if err != nil {
			return nil, AllocateOutput{}, err
		}
		out.Allocations = append(out.Allocations, counts)
	}
	return nil, out, nil
}

// ListRunsArgs limits the listing.
type ListRunsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20)"`
}

// RunEntry is one recorded run as listed to clients.
type RunEntry struct {
	RunID     string          `json:"run_id"`
	Mode      string          `json:"mode"`
	CreatedAt string          `json:"created_at"`
	Source    string          `json:"source,omitempty"`
	Seed      uint64          `json:"seed"`
	NDraws    int             `json:"n_draws"`
	Scenarios []string        `json:"scenarios"`
	Totals    []model.Summary `json:"totals,omitempty"`
}

// ListRunsOutput lists recorded runs, newest first.
type ListRunsOutput struct {
	Runs  []RunEntry `json:"runs"`
	Total int        `json:"total" jsonschema:"number of runs recorded, including those beyond the limit"`
}

func (s *Server) handleListRuns(_ context.Context, _ *mcp.CallToolRequest, args ListRunsArgs) (*mcp.CallToolResult, ListRunsOutput, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	out := ListRunsOutput{Runs: []RunEntry{}}
	if s.runs == nil {
		return nil, out, nil
	}
	for _, m := range s.runs.List(limit) {
		out.Runs = append(out.Runs, runEntry(m))
	}
	out.Total = s.runs.Count()
	return nil, out, nil
}

func runEntry(m store.Manifest) RunEntry {
	return RunEntry{
		RunID:     m.RunID,
		Mode:      m.Mode,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		Source:    m.Source,
		Seed:      m.Seed,
		NDraws:    m.NDraws,
		Scenarios: m.Scenarios,
		Totals:    m.Totals,
	}
}
