// Package initcmder provides the init command for initializing a local
// .worklog directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opshelm/worklog/pkg/cliui"
	"github.com/opshelm/worklog/pkg/config"
	"github.com/opshelm/worklog/pkg/database/sqlite"
	"github.com/opshelm/worklog/pkg/dotdir"
)

const (
	dirName = ".worklog"
)

const initLongDesc string = `Initialize a new .worklog/ directory in the current working directory.

Creates a local .worklog/ directory that takes precedence over the default
~/.worklog/ directory, writes a starter config.toml, and creates the
embedded database schema.

This is useful for maintaining a separate store per project or directory.

Presets:
  local     Embedded database, no event publishing (default)
  shared    JSON logs and a localhost Kafka broker for change events

Examples:
  worklog init
  worklog init --preset shared
  worklog init --agent claude
  worklog init --skip-db`

const initShortDesc string = "Initialize a local .worklog/ directory"

func NewInitCmd() *cobra.Command {
	var preset string
	var skipDB bool
	var agent string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset, skipDB, agent)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "local", "Configuration preset (local, shared)")
	cmd.Flags().BoolVar(&skipDB, "skip-db", false, "Skip creating the embedded database")
	cmd.Flags().StringVar(&agent, "agent", "", "Save an agent identity used as the default attribution")

	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(preset string, skipDB bool, agent string) error {
	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .worklog directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println()
	err = cliui.Step(os.Stdout, "Writing config.toml", func() error {
		return cfger.SaveConfig(cfg)
	})
	if err != nil {
		return err
	}

	if !skipDB {
		if err := createDatabase(dir); err != nil {
			return err
		}
	}

	if agent != "" {
		if err := saveIdentity(dir, agent); err != nil {
			return err
		}
	}

	fmt.Printf("\n  %s Initialized %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(dirName),
		cliui.DimStyle.Render("("+strings.ToLower(preset)+" preset)"),
	)

	return nil
}

// saveIdentity persists the default agent attribution for this directory.
func saveIdentity(dir, agent string) error {
	return cliui.Step(os.Stdout, "Saving identity for "+agent, func() error {
		hostname, _ := os.Hostname()

		return dotdir.NewManager().SaveIdentity(&dotdir.Identity{
			Agent:  strings.ToLower(agent),
			System: hostname,
		}, dir)
	})
}

// createDatabase connects once so the schema exists before the first serve.
func createDatabase(dir string) error {
	path := filepath.Join(dir, "worklog.db")

	return cliui.Step(os.Stdout, "Creating database "+path, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		backend := sqlite.NewSQLiteBackend(path)
		if err := backend.Connect(ctx); err != nil {
			return fmt.Errorf("creating database: %w", err)
		}

		return backend.Close()
	})
}
