// Package worklogcmder assembles the worklog CLI command tree.
package worklogcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/opshelm/worklog/cmd/worklog/auth"
	browsecmder "github.com/opshelm/worklog/cmd/worklog/browse"
	configcmder "github.com/opshelm/worklog/cmd/worklog/config"
	dbpathcmder "github.com/opshelm/worklog/cmd/worklog/dbpath"
	initcmder "github.com/opshelm/worklog/cmd/worklog/init"
	servecmder "github.com/opshelm/worklog/cmd/worklog/serve"
	statscmder "github.com/opshelm/worklog/cmd/worklog/stats"
	versioncmder "github.com/opshelm/worklog/cmd/version"
)

const worklogLongDesc string = `Worklog is a shared memory and work journal for coding agents.

It stores memories, work entries, knowledge, and agent chat in an embedded
SQLite database or a PostgreSQL server, and exposes them to agents as MCP
tools.

Run the tool server with:
  worklog serve

Inspect the store with:
  worklog stats      Store health report
  worklog browse     Interactive entry browser`

const worklogShortDesc string = "Worklog - shared agent memory"

func NewWorklogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worklog",
		Short: worklogShortDesc,
		Long:  worklogLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .worklog/ directory location")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(browsecmder.NewBrowseCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(dbpathcmder.NewDBPathCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
