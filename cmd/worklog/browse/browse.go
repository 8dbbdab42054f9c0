// Package browsecmder provides the browse command, an interactive browser
// over the knowledge-store tables.
package browsecmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opshelm/worklog/cmd/worklog/dbopen"
	"github.com/opshelm/worklog/pkg/config"
	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/logger"
	"github.com/opshelm/worklog/pkg/worklog"
)

const browseLongDesc string = `Browse the knowledge store interactively.

Opens a terminal browser over the store tables: memories, work entries,
knowledge base, agent chat, and the rest. Move with j/k, drill into an
entry with enter, cycle tables with t, and refresh with r.

Examples:
  worklog browse
  worklog browse --table memories
  worklog browse --limit 100`

const browseShortDesc string = "Browse the knowledge store interactively"

type browseCommander struct {
	table string
	limit int
}

func NewBrowseCmd() *cobra.Command {
	cmder := &browseCommander{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: browseShortDesc,
		Long:  browseLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd, configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.table, "table", "entries", "Table to open first")
	cmd.Flags().IntVar(&cmder.limit, "limit", 50, "Rows to load per table")

	_ = cmd.RegisterFlagCompletionFunc("table", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return worklog.Tables, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *browseCommander) run(cmd *cobra.Command, configDir string) error {
	table := strings.ToLower(strings.TrimSpace(c.table))
	if _, err := worklog.ValidateTable(table); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.Nop()

	provider, err := database.NewProvider(database.ProviderConfig{
		Open:   dbopen.Open(cfg, log),
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating database provider: %w", err)
	}
	defer provider.Close()

	service, err := worklog.NewService(worklog.Config{
		Provider: provider,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating worklog service: %w", err)
	}

	return runBrowseTUI(cmd.Context(), service, table, c.limit)
}
