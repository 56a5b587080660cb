package main

import (
	"os"

	"github.com/jhoicas/rutslots-api/internal/interfaces/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.Options{}).Execute(); err != nil {
		os.Exit(1)
	}
}
