package main

import (
	"os"

	"github.com/thiagokokada/bevcs/cmd"
	"github.com/thiagokokada/bevcs/internal/logging"
)

func main() {
	if err := cmd.Run(); err != nil {
		logging.UserError("bevcs: %v", err)
		os.Exit(cmd.ExitCode(err))
	}
}
