package main

import (
	"flag"
	"fmt"
	"os"

	"co2-mcs/cmd/mockgen/engine"
)

func main() {
	preset := flag.String("preset", "skirmish", "Preset to generate: skirmish, siege, air")
	outDir := flag.String("out", "./data", "Output directory for the bundle")
	count := flag.Int("count", 3, "Number of scenarios to generate")
	seed := flag.Uint64("seed", 1, "Generator seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Preset:    *preset,
		Scenarios: *count,
		Seed:      *seed,
	}

	fmt.Printf("Generating preset '%s' (Scenarios: %d, Seed: %d) to %s...\n", cfg.Preset, cfg.Scenarios, cfg.Seed, *outDir)

	bundle, err := engine.Generate(cfg)
	if err != nil {
		fmt.Printf("Failed to generate mock data: %v\n", err)
		os.Exit(1)
	}

	path, err := engine.Save(*outDir, cfg.Preset, bundle)
	if err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %s\n", path)
}
