// Package servecmder provides the serve command that runs the worklog tool server.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opshelm/worklog/api"
	"github.com/opshelm/worklog/api/mcp"
	"github.com/opshelm/worklog/cmd/worklog/dbopen"
	"github.com/opshelm/worklog/pkg/config"
	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/dotdir"
	"github.com/opshelm/worklog/pkg/eventstream"
	"github.com/opshelm/worklog/pkg/eventstream/kafka"
	"github.com/opshelm/worklog/pkg/eventstream/nop"
	"github.com/opshelm/worklog/pkg/eventstream/worker"
	"github.com/opshelm/worklog/pkg/logger"
	"github.com/opshelm/worklog/pkg/plane"
	"github.com/opshelm/worklog/pkg/worklog"
)

type ServeCommander struct {
	listen     string
	sqlitePath string
	brokers    string
	topic      string
	workers    uint
	queueSize  uint
	planeURL   string
	workspace  string
	agentName  string
}

// serveFlags defines the flags this command exposes and the viper keys they
// bind to. Values resolve flag > env > config file > default.
var serveFlags = config.FlagSet{
	config.FlagListen:    {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the tool server to listen on"},
	config.FlagSQLite:    {Name: "sqlite", Shorthand: "s", ViperKey: "database.sqlite_path", Description: "Path to the SQLite database file"},
	config.FlagBrokers:   {Name: "brokers", ViperKey: "events.brokers", Description: "Comma-separated Kafka brokers for change events (empty disables publishing)"},
	config.FlagTopic:     {Name: "topic", ViperKey: "events.topic", Description: "Kafka topic change events are written to"},
	config.FlagWorkers:   {Name: "workers", ViperKey: "events.workers", Description: "Number of event delivery workers"},
	config.FlagQueueSize: {Name: "queue-size", ViperKey: "events.queue_size", Description: "Capacity of the event delivery queue"},
	config.FlagPlaneURL:  {Name: "plane-url", ViperKey: "plane.api_url", Description: "Plane API base URL (empty disables the tracker tools)"},
	config.FlagWorkspace: {Name: "workspace", ViperKey: "plane.workspace", Description: "Default Plane workspace slug"},
	config.FlagAgentName: {Name: "agent", ViperKey: "chat.agent_name", Description: "Agent name used for chat defaults and event attribution"},
}

const serveLongDesc string = `Run the worklog tool server.

The server opens the configured database backend (SQLite by default,
PostgreSQL when DATABASE_URL or PGHOST is set), exposes the worklog tools
over MCP at /mcp, and serves /ping and /stats for monitoring.

When Kafka brokers are configured, every successful mutation is published
as a change event through a background worker pool.`

const serveShortDesc string = "Run the worklog tool server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagTopic, &cmder.topic)
	config.AddUintFlag(cmd, serveFlags, config.FlagWorkers, &cmder.workers)
	config.AddUintFlag(cmd, serveFlags, config.FlagQueueSize, &cmder.queueSize)
	config.AddStringFlag(cmd, serveFlags, config.FlagPlaneURL, &cmder.planeURL)
	config.AddStringFlag(cmd, serveFlags, config.FlagWorkspace, &cmder.workspace)
	config.AddStringFlag(cmd, serveFlags, config.FlagAgentName, &cmder.agentName)

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("could not get debug flag: %v", err)
	}

	configDir, err := cmd.Flags().GetString("config-dir")
	if err != nil {
		return fmt.Errorf("could not get config-dir flag: %v", err)
	}

	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("initializing configuration: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, serveFlags, []string{
		config.FlagListen,
		config.FlagSQLite,
		config.FlagBrokers,
		config.FlagTopic,
		config.FlagWorkers,
		config.FlagQueueSize,
		config.FlagPlaneURL,
		config.FlagWorkspace,
		config.FlagAgentName,
	})

	log := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(v.GetBool("log.json")),
	)

	// Log config file edits so operators know a restart is needed. Values
	// are resolved at startup and do not change live.
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("config file changed, restart to apply", "file", e.Name)
	})
	v.WatchConfig()

	cfg := &config.Config{}
	cfg.Database.SQLitePath = v.GetString("database.sqlite_path")

	provider, err := database.NewProvider(database.ProviderConfig{
		Open:   dbopen.Open(cfg, log),
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating database provider: %w", err)
	}

	events, pool, err := c.buildEvents(v, log)
	if err != nil {
		return err
	}

	agents := config.Agents(v.GetString("chat.agents"))
	configuredName := v.GetString("chat.agent_name")
	system, _ := os.Hostname()

	// A saved identity supplies defaults; flags, env, and config still win.
	identity, err := dotdir.NewManager().LoadIdentity(configDir)
	if err != nil {
		log.Warn("could not load agent identity", "error", err)
	}
	if identity != nil {
		if configuredName == "" {
			configuredName = identity.Agent
		}
		if identity.System != "" {
			system = identity.System
		}
	}

	agentName := config.AgentName(configuredName, agents)

	service, err := worklog.NewService(worklog.Config{
		Provider:  provider,
		Events:    events,
		Agents:    agents,
		AgentName: agentName,
		System:    system,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating worklog service: %w", err)
	}

	planeClient, planeDB, err := c.buildPlane(v, log)
	if err != nil {
		return err
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Service: service,
		Plane:   planeClient,
		PlaneDB: planeDB,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	listen := v.GetString("server.listen")
	apiServer, err := api.NewServer(api.Config{ListenAddr: listen}, service, mcpServer.Handler(), log)
	if err != nil {
		return fmt.Errorf("creating tool server: %w", err)
	}

	log.Info("starting tool server",
		"listen", listen,
		"agent", agentName,
		"plane", planeClient != nil,
		"plane_db", planeDB != nil,
		"events", pool != nil,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("tool server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
	}

	if err := apiServer.Shutdown(); err != nil {
		log.Error("shutting down tool server", "error", err)
	}

	// Drain queued change events before releasing the database.
	if pool != nil {
		if err := pool.Close(); err != nil {
			log.Error("closing event pool", "error", err)
		}
	}

	if err := provider.Close(); err != nil {
		log.Error("closing database", "error", err)
	}

	return nil
}

// buildEvents wires the change event pipeline. Without brokers every event
// goes to the no-op publisher and nothing leaves the process.
func (c *ServeCommander) buildEvents(v *viper.Viper, log *slog.Logger) (eventstream.Publisher, *worker.Pool, error) {
	brokers := splitList(v.GetString("events.brokers"))
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil, nil
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   v.GetString("events.topic"),
		Logger:  log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher:  publisher,
		NumWorkers: v.GetUint("events.workers"),
		QueueSize:  v.GetUint("events.queue_size"),
		Logger:     log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating event pool: %w", err)
	}

	return pool, pool, nil
}

// buildPlane constructs the optional Plane clients. The REST client needs an
// API URL and key; the database client needs an SSH host. Either can run
// without the other.
func (c *ServeCommander) buildPlane(v *viper.Viper, log *slog.Logger) (*plane.Client, *plane.DBClient, error) {
	var client *plane.Client
	if apiURL := v.GetString("plane.api_url"); apiURL != "" {
		var err error
		client, err = plane.NewClient(plane.Config{
			APIURL:        apiURL,
			APIKey:        v.GetString("plane.api_key"),
			WorkspaceSlug: v.GetString("plane.workspace"),
			Logger:        log,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating plane client: %w", err)
		}
	}

	var dbClient *plane.DBClient
	if sshHost := v.GetString("plane.db_ssh_host"); sshHost != "" {
		// The database password has no config file key on purpose; it is
		// read from WORKLOG_PLANE_DB_PASSWORD so it never lands on disk.
		runner := plane.NewSSHRunner(plane.DBConfig{
			SSHHost:   sshHost,
			Container: v.GetString("plane.db_container"),
			User:      v.GetString("plane.db_user"),
			Password:  v.GetString("plane.db_password"),
			Database:  v.GetString("plane.db_name"),
		}, log)
		dbClient = plane.NewDBClient(runner, log)
	}

	return client, dbClient, nil
}

// splitList splits a comma-separated list, trimming whitespace and dropping
// empty items.
func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}
