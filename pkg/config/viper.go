package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/opshelm/worklog/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the WORKLOG_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (WORKLOG_SERVER_LISTEN, WORKLOG_EVENTS_BROKERS, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
//
// Database backend selection is NOT part of this chain; it follows the
// undecorated environment contract in selector.go (DATABASE_URL, PGHOST, ...).
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: WORKLOG_SERVER_LISTEN, WORKLOG_PLANE_API_KEY, etc.
	v.SetEnvPrefix("WORKLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)

	// Log
	v.SetDefault("log.json", d.Log.JSON)

	// Database
	v.SetDefault("database.sqlite_path", d.Database.SQLitePath)

	// Events
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
	v.SetDefault("events.workers", d.Events.Workers)
	v.SetDefault("events.queue_size", d.Events.QueueSize)

	// Plane
	v.SetDefault("plane.api_url", d.Plane.APIURL)
	v.SetDefault("plane.api_key", d.Plane.APIKey)
	v.SetDefault("plane.workspace", d.Plane.Workspace)
	v.SetDefault("plane.db_ssh_host", d.Plane.DBSSHHost)
	v.SetDefault("plane.db_container", d.Plane.DBContainer)
	v.SetDefault("plane.db_user", d.Plane.DBUser)
	v.SetDefault("plane.db_name", d.Plane.DBName)

	// Chat
	v.SetDefault("chat.agent_name", d.Chat.AgentName)
	v.SetDefault("chat.agents", d.Chat.Agents)
}
