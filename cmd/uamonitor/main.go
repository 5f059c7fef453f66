package main

import (
	"os"

	"github.com/amine-amaach/simulators/uaMonitor/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
