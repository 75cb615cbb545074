package config

import "time"

// Provider defines read access to the loaded configuration.
// Values are immutable after loading.
type Provider interface {
	// GetName returns the display name of the simulated device
	GetName() string

	// GetInterval returns the sampling period
	GetInterval() time.Duration

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// IsDebug returns whether verbose recorder diagnostics are enabled
	IsDebug() bool

	// ShouldUnregisterOnShutdown returns whether shutdown removes all devices from the host
	ShouldUnregisterOnShutdown() bool

	// IsMetricsEnabled returns whether the Prometheus exporter is enabled
	IsMetricsEnabled() bool
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	args       []string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "EVEENERGY"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithArgs parses the given command line arguments instead of os.Args[1:]
func WithArgs(args []string) Option {
	return func(o *options) error {
		o.args = args
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
