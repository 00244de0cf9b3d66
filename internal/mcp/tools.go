package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "run_simulation",
		Description: "Run the Monte Carlo CO2 emissions simulation for every scenario in a bundle or parameter table. " +
			"Returns scenario-level median, p5 and p95 totals in kg CO2 plus sampling diagnostics.",
	}, s.handleRunSimulation)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "run_phased_simulation",
		Description: "Re-sample campaign tempo on top of the deterministic daily emissions: phase lengths are drawn per draw " +
			"and each day is scaled by a lognormal phase intensity multiplier. Returns totals and phase-length percentiles.",
	}, s.handleRunPhasedSimulation)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "allocate_phase_lengths",
		Description: "Sample integer phase lengths that sum exactly to total_days, each at least min_days, " +
			"using normal draws, rescaling and largest-remainder rounding.",
	}, s.handleAllocatePhaseLengths)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recorded runs, newest first, with their seeds, draw counts and scenario totals.",
	}, s.handleListRuns)
}
