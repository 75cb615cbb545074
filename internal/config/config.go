package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/eveenergy/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultName          = "Eve energy"
	DefaultType          = "AccessoryPlatform"
	DefaultInterval      = 60*time.Second - 200*time.Millisecond
	DefaultLogLevel      = string(LogLevelInfo)
	DefaultStorageDir    = "/var/lib/eveenergy"
	DefaultBridgeMode    = "bridge"
	DefaultHostVersion   = "3.3.0"
	DefaultMetricsAddr   = ":9464"
	DefaultMaxEntries    = 10080
	DefaultBatchSize     = 16
	DefaultFlushInterval = 30 * time.Second

	defaultEnvPrefix  = "EVEENERGY"
	defaultConfigName = "eveenergy"
)

type Config struct {
	Name                 string        `mapstructure:"name"`
	Type                 string        `mapstructure:"type"`
	UnregisterOnShutdown bool          `mapstructure:"unregister_on_shutdown"`
	Debug                bool          `mapstructure:"debug"`
	Verbose              bool          `mapstructure:"verbose"`
	Interval             time.Duration `mapstructure:"interval"`
	LogLevel             string        `mapstructure:"log_level"`
	StorageDir           string        `mapstructure:"storage_dir"`
	BridgeMode           string        `mapstructure:"bridge_mode"`
	HostVersion          string        `mapstructure:"host_version"`
	EventLog             string        `mapstructure:"event_log"`
	Describe             bool          `mapstructure:"describe"`
	History              HistoryConfig `mapstructure:"history"`
	Metrics              MetricsConfig `mapstructure:"metrics"`
}

type HistoryConfig struct {
	MaxEntries    int           `mapstructure:"max_entries"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from defaults, config file, environment and
// command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix, args: os.Args[1:]}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	flags := newFlagSet()
	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Environment
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Config file: flag, then env, then well-known locations
	path := o.configPath
	if f := flags.Lookup("config"); f != nil && f.Changed {
		path = f.Value.String()
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("toml")
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", defaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Override config file values with command line flags
	if err := bindFlags(v, flags); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", DefaultName)
	v.SetDefault("type", DefaultType)
	v.SetDefault("unregister_on_shutdown", false)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("storage_dir", DefaultStorageDir)
	v.SetDefault("bridge_mode", DefaultBridgeMode)
	v.SetDefault("host_version", DefaultHostVersion)
	v.SetDefault("event_log", "")
	v.SetDefault("describe", false)
	v.SetDefault("history.max_entries", DefaultMaxEntries)
	v.SetDefault("history.batch_size", DefaultBatchSize)
	v.SetDefault("history.flush_interval", DefaultFlushInterval)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", DefaultMetricsAddr)
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(defaultConfigName, pflag.ContinueOnError)
	flags.String("config", "", "Path to the configuration file")
	flags.String("name", DefaultName, "Display name of the simulated device")
	flags.Bool("unregister-on-shutdown", false, "Remove all devices from the host on shutdown")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Duration("interval", DefaultInterval, "Sampling interval")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.String("storage-dir", DefaultStorageDir, "Directory holding history and pid files")
	flags.String("event-log", "", "Path of the CBOR event log (empty disables it)")
	flags.Bool("describe", false, "Print the endpoint layout as YAML and exit")
	flags.Bool("metrics", false, "Enable the Prometheus exporter")
	flags.String("metrics-addr", DefaultMetricsAddr, "Listen address of the Prometheus exporter")
	return flags
}

// flagKeys maps flag names to their configuration keys
var flagKeys = map[string]string{
	"name":                   "name",
	"unregister-on-shutdown": "unregister_on_shutdown",
	"debug":                  "debug",
	"verbose":                "verbose",
	"interval":               "interval",
	"log-level":              "log_level",
	"storage-dir":            "storage_dir",
	"event-log":              "event_log",
	"describe":               "describe",
	"metrics":                "metrics.enabled",
	"metrics-addr":           "metrics.addr",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Name == "" {
		return errFactory.WithData(errors.ErrMissingConfig, "name")
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval.String())
	}
	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.History.MaxEntries <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "history.max_entries must be positive")
	}
	if c.History.BatchSize < 0 || c.History.FlushInterval < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "history batching values must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errFactory.WithData(errors.ErrMissingConfig, "metrics.addr")
	}
	return nil
}

func (c *Config) GetName() string                  { return c.Name }
func (c *Config) GetInterval() time.Duration       { return c.Interval }
func (c *Config) GetLogLevel() string              { return c.LogLevel }
func (c *Config) IsDebug() bool                    { return c.Debug }
func (c *Config) ShouldUnregisterOnShutdown() bool { return c.UnregisterOnShutdown }
func (c *Config) IsMetricsEnabled() bool           { return c.Metrics.Enabled }
