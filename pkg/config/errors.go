package config

// ConfigError reports missing or invalid startup configuration.
// Unlike request-scoped failures, a ConfigError is fatal: callers surface
// the message and exit rather than retry.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}
