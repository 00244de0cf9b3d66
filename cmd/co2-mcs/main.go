package main

import (
	"fmt"
	"os"

	"co2-mcs/cmd/co2-mcs/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
