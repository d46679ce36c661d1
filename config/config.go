package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// EnvPrefix namespaces environment overrides, e.g. APISWITCH_PROBE_TIMEOUT.
const EnvPrefix = "APISWITCH"

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type StoreConfig struct {
	Path       string `mapstructure:"path"`
	HealthPath string `mapstructure:"health_path"`
	StatePath  string `mapstructure:"state_path"`
}

type ProbeConfig struct {
	Timeout     string `mapstructure:"timeout"`
	Concurrency int    `mapstructure:"concurrency"`
	Model       string `mapstructure:"model"`
}

type MonitorConfig struct {
	Interval   string `mapstructure:"interval"`
	AutoSwitch bool   `mapstructure:"auto_switch"`

	// BreakerThreshold consecutive failures open an endpoint's circuit
	// during watch; 0 disables the breaker.
	BreakerThreshold int    `mapstructure:"breaker_threshold"`
	BreakerCooldown  string `mapstructure:"breaker_cooldown"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
	Buffer  int    `mapstructure:"buffer"`
}

type Config struct {
	Environment string        `mapstructure:"environment"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Store       StoreConfig   `mapstructure:"store"`
	Probe       ProbeConfig   `mapstructure:"probe"`
	Monitor     MonitorConfig `mapstructure:"monitor"`
	Metrics     MetricsConfig `mapstructure:"metrics"`

	probeTimeout    time.Duration
	monitorInterval time.Duration
	breakerCooldown time.Duration
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing priority. An empty file searches config.yaml in
// ./config and the working directory; a missing file there is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Debug("config file not found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Both parse after Validate has accepted them.
	cfg.probeTimeout, _ = time.ParseDuration(cfg.Probe.Timeout)
	cfg.monitorInterval, _ = time.ParseDuration(cfg.Monitor.Interval)
	cfg.breakerCooldown, _ = time.ParseDuration(cfg.Monitor.BreakerCooldown)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDev)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("store.path", "model_config.json")
	v.SetDefault("store.health_path", "health_status.json")
	v.SetDefault("store.state_path", ".active_endpoint")
	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.concurrency", 10)
	v.SetDefault("probe.model", "claude-3-5-haiku-latest")
	v.SetDefault("monitor.interval", "60s")
	v.SetDefault("monitor.auto_switch", true)
	v.SetDefault("monitor.breaker_threshold", 3)
	v.SetDefault("monitor.breaker_cooldown", "5m")
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("metrics.buffer", 256)
}

// ProbeTimeout is the per-call probe budget.
func (c *Config) ProbeTimeout() time.Duration {
	return c.probeTimeout
}

// MonitorInterval is the pause between watch runs.
func (c *Config) MonitorInterval() time.Duration {
	return c.monitorInterval
}

func (c *Config) BreakerCooldown() time.Duration {
	return c.breakerCooldown
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&c.Logging, validation.By(func(value interface{}) error {
			lc := value.(LoggingConfig)
			return validation.ValidateStruct(&lc,
				validation.Field(&lc.Level,
					validation.Required,
					validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
				),
			)
		})),
		validation.Field(&c.Store, validation.By(func(value interface{}) error {
			sc := value.(StoreConfig)
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.Path, validation.Required),
				validation.Field(&sc.HealthPath, validation.Required),
				validation.Field(&sc.StatePath, validation.Required),
			)
		})),
		validation.Field(&c.Probe, validation.By(func(value interface{}) error {
			pc := value.(ProbeConfig)
			return validation.ValidateStruct(&pc,
				validation.Field(&pc.Timeout, validation.Required, validation.By(validatePositiveDuration)),
				validation.Field(&pc.Concurrency, validation.Required, validation.Min(1), validation.Max(256)),
				validation.Field(&pc.Model, validation.Required),
			)
		})),
		validation.Field(&c.Monitor, validation.By(func(value interface{}) error {
			mc := value.(MonitorConfig)
			return validation.ValidateStruct(&mc,
				validation.Field(&mc.Interval, validation.Required, validation.By(validatePositiveDuration)),
				validation.Field(&mc.BreakerThreshold, validation.Min(0)),
				validation.Field(&mc.BreakerCooldown, validation.Required, validation.By(validatePositiveDuration)),
			)
		})),
		validation.Field(&c.Metrics, validation.By(func(value interface{}) error {
			mc := value.(MetricsConfig)
			return validation.ValidateStruct(&mc,
				validation.Field(&mc.Address, validation.Required, validation.By(validateHostPort)),
				validation.Field(&mc.Buffer, validation.Required, validation.Min(1)),
			)
		})),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be greater than zero")
	}

	return nil
}
