package config

const (
	defaultServerListen = ":8080"

	defaultEventsTopic     = "worklog.changes"
	defaultEventsWorkers   = 3
	defaultEventsQueueSize = 256

	defaultPlaneDBContainer = "plane-app-plane-db-1"
	defaultPlaneDBUser      = "plane"
	defaultPlaneDBName      = "plane"

	defaultAgentName = "claude"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Events: EventsConfig{
			Topic:     defaultEventsTopic,
			Workers:   defaultEventsWorkers,
			QueueSize: defaultEventsQueueSize,
		},
		Plane: PlaneConfig{
			DBContainer: defaultPlaneDBContainer,
			DBUser:      defaultPlaneDBUser,
			DBName:      defaultPlaneDBName,
		},
	}
}
