package main

import (
	"os"

	worklogcmder "github.com/opshelm/worklog/cmd/worklog"
)

func main() {
	cmd := worklogcmder.NewWorklogCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
