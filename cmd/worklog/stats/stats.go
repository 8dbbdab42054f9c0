// Package statscmder provides the stats command that prints a knowledge-store
// health report.
package statscmder

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opshelm/worklog/cmd/worklog/dbopen"
	"github.com/opshelm/worklog/pkg/cliui"
	"github.com/opshelm/worklog/pkg/config"
	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/logger"
	"github.com/opshelm/worklog/pkg/worklog"
)

const statsLongDesc string = `Print a knowledge-store health report.

Connects to the configured database backend and reports table counts,
recent curation runs, orphan rate, tag coverage, pending duplicate
reports, and stale staging memories, with an alert for every indicator
past its threshold.

Examples:
  worklog stats`

const statsShortDesc string = "Print a knowledge-store health report"

func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStats(configDir)
		},
	}

	return cmd
}

func runStats(configDir string) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var report *worklog.CurationReport
	fmt.Println()
	err = cliui.Step(os.Stdout, "Collecting store health", func() error {
		report, err = service.CurationStatus(ctx)
		return err
	})
	if err != nil {
		return err
	}

	rendered, err := cliui.RenderMarkdown(reportMarkdown(report))
	if err != nil {
		return err
	}

	fmt.Print(rendered)

	return nil
}

// reportMarkdown renders the curation report as markdown for glamour.
func reportMarkdown(r *worklog.CurationReport) string {
	var b strings.Builder

	b.WriteString("# Store Health\n\n")

	b.WriteString("## Tables\n\n")
	b.WriteString("| Table | Rows |\n|---|---|\n")
	names := make([]string, 0, len(r.Tables))
	for name := range r.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "| %s | %d |\n", name, r.Tables[name])
	}

	b.WriteString("\n## Indicators\n\n")
	fmt.Fprintf(&b, "- Orphan rate: %.1f%%\n", r.OrphanRate)
	fmt.Fprintf(&b, "- Tag coverage: %.1f%%\n", r.TagCoverage)
	fmt.Fprintf(&b, "- Pending duplicates: %d\n", r.PendingDuplicates)
	fmt.Fprintf(&b, "- Stale staging memories: %d\n", r.StaleStaging)

	if len(r.Operations) > 0 {
		b.WriteString("\n## Recent curation runs\n\n")
		b.WriteString("| Operation | Runs | Successes |\n|---|---|---|\n")
		for _, op := range r.Operations {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", op.Operation, op.Runs, op.Successes)
		}
	}

	if len(r.Alerts) > 0 {
		b.WriteString("\n## Alerts\n\n")
		for _, a := range r.Alerts {
			fmt.Fprintf(&b, "- **%s** %s: %s (%s)\n", a.Severity, a.Indicator, a.Message, a.Action)
		}
	} else {
		b.WriteString("\nNo alerts.\n")
	}

	return b.String()
}
