package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent worklog configuration stored as config.toml
// in the .worklog/ directory. The TOML layout uses sections for logical grouping.
//
// Database backend selection does NOT live here: it follows the environment
// contract in selector.go so the server behaves identically with no config
// file present.
type Config struct {
	Version  int            `toml:"version"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Events   EventsConfig   `toml:"events"`
	Plane    PlaneConfig    `toml:"plane"`
	Chat     ChatConfig     `toml:"chat"`
}

// ServerConfig holds HTTP server settings for the tool surface.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// LogConfig holds logging output settings.
type LogConfig struct {
	JSON bool `toml:"json,omitempty"`
}

// DatabaseConfig holds embedded database settings. SQLitePath overrides the
// default <dotdir>/worklog.db location; the WORKLOG_DB_PATH environment
// variable wins over both.
type DatabaseConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// EventsConfig holds change-event publishing settings. Empty Brokers disables
// publishing entirely.
type EventsConfig struct {
	Brokers   string `toml:"brokers,omitempty"`
	Topic     string `toml:"topic,omitempty"`
	Workers   uint   `toml:"workers,omitempty"`
	QueueSize uint   `toml:"queue_size,omitempty"`
}

// PlaneConfig holds settings for the Plane project tracker integration.
// The REST client needs APIURL and APIKey; the pages database client needs
// the SSH host plus container coordinates. Empty APIURL disables the Plane
// tools altogether.
type PlaneConfig struct {
	APIURL      string `toml:"api_url,omitempty"`
	APIKey      string `toml:"api_key,omitempty"`
	Workspace   string `toml:"workspace,omitempty"`
	DBSSHHost   string `toml:"db_ssh_host,omitempty"`
	DBContainer string `toml:"db_container,omitempty"`
	DBUser      string `toml:"db_user,omitempty"`
	DBName      string `toml:"db_name,omitempty"`
}

// ChatConfig holds agent messaging settings. AgentName identifies this
// machine's agent; Agents is a comma-separated list of extra valid agent
// names beyond the built-in set.
type ChatConfig struct {
	AgentName string `toml:"agent_name,omitempty"`
	Agents    string `toml:"agents,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.json: %w", err)
			}
			c.Log.JSON = b
			return nil
		},
	},
	"database.sqlite_path": {
		get: func(c *Config) string { return c.Database.SQLitePath },
		set: func(c *Config, v string) error { c.Database.SQLitePath = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"events.workers": {
		get: func(c *Config) string {
			if c.Events.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Events.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for events.workers: %w", err)
			}
			c.Events.Workers = uint(n)
			return nil
		},
	},
	"events.queue_size": {
		get: func(c *Config) string {
			if c.Events.QueueSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Events.QueueSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for events.queue_size: %w", err)
			}
			c.Events.QueueSize = uint(n)
			return nil
		},
	},
	"plane.api_url": {
		get: func(c *Config) string { return c.Plane.APIURL },
		set: func(c *Config, v string) error { c.Plane.APIURL = v; return nil },
	},
	"plane.api_key": {
		get: func(c *Config) string { return c.Plane.APIKey },
		set: func(c *Config, v string) error { c.Plane.APIKey = v; return nil },
	},
	"plane.workspace": {
		get: func(c *Config) string { return c.Plane.Workspace },
		set: func(c *Config, v string) error { c.Plane.Workspace = v; return nil },
	},
	"plane.db_ssh_host": {
		get: func(c *Config) string { return c.Plane.DBSSHHost },
		set: func(c *Config, v string) error { c.Plane.DBSSHHost = v; return nil },
	},
	"plane.db_container": {
		get: func(c *Config) string { return c.Plane.DBContainer },
		set: func(c *Config, v string) error { c.Plane.DBContainer = v; return nil },
	},
	"plane.db_user": {
		get: func(c *Config) string { return c.Plane.DBUser },
		set: func(c *Config, v string) error { c.Plane.DBUser = v; return nil },
	},
	"plane.db_name": {
		get: func(c *Config) string { return c.Plane.DBName },
		set: func(c *Config, v string) error { c.Plane.DBName = v; return nil },
	},
	"chat.agent_name": {
		get: func(c *Config) string { return c.Chat.AgentName },
		set: func(c *Config, v string) error { c.Chat.AgentName = v; return nil },
	},
	"chat.agents": {
		get: func(c *Config) string { return c.Chat.Agents },
		set: func(c *Config, v string) error { c.Chat.Agents = v; return nil },
	},
}
