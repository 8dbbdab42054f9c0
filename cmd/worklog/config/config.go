// Package configcmder provides the config command for managing persistent
// worklog configuration stored in the .worklog/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent worklog configuration.

Configuration is stored as config.toml in the .worklog/ directory and provides
default values for command flags. CLI flags and WORKLOG_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, log.json, database.sqlite_path,
  events.brokers, events.topic, events.workers, events.queue_size,
  plane.api_url, plane.api_key, plane.workspace,
  plane.db_ssh_host, plane.db_container, plane.db_user, plane.db_name,
  chat.agent_name, chat.agents

Use subcommands to get, set, or list configuration values:
  worklog config set <key> <value>    Set a configuration value
  worklog config get <key>            Get a configuration value
  worklog config list                 List all configuration values

Examples:
  worklog config set events.brokers localhost:9092
  worklog config set chat.agent_name claude
  worklog config get server.listen
  worklog config list`

const configShortDesc string = "Manage persistent worklog configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
