package main

import (
	"fmt"
	"os"

	"github.com/perch3d/sceneql/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
