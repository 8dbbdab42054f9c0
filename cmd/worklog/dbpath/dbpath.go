// Package dbpathcmder provides the dbpath command for showing which database
// backend the environment selects and where it lives.
package dbpathcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opshelm/worklog/cmd/worklog/dbopen"
	"github.com/opshelm/worklog/pkg/cliui"
	"github.com/opshelm/worklog/pkg/config"
)

const dbpathLongDesc string = `Show the resolved database backend and location.

Applies the same selection rules as the serve command without connecting:
DATABASE_URL or PGHOST selects PostgreSQL, otherwise the embedded SQLite
file is used. The PostgreSQL form never includes the password.

Examples:
  worklog dbpath
  DATABASE_URL=postgresql://worklog@db/worklog worklog dbpath`

const dbpathShortDesc string = "Show the resolved database location"

func NewDBPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbpath",
		Short: dbpathShortDesc,
		Long:  dbpathLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runDBPath(configDir)
		},
	}

	return cmd
}

func runDBPath(configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	backend, location, err := dbopen.Location(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("backend"), cliui.ValueStyle.Render(string(backend)))
	fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("location"), cliui.ValueStyle.Render(location))

	return nil
}
