package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/healthops/cache"
	"github.com/jonwraymond/healthops/monitor"
	"github.com/jonwraymond/healthops/notify"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
	"github.com/jonwraymond/healthops/secret"
	"github.com/jonwraymond/healthops/store"
)

// Config is the complete healthopsd configuration.
type Config struct {
	Service    string         `yaml:"service"`
	HTTP       HTTPConfig     `yaml:"http"`
	Log        LogConfig      `yaml:"log"`
	Telemetry  observe.Config `yaml:"telemetry"`
	Notify     NotifyConfig   `yaml:"notify"`
	SecretsDir string         `yaml:"secrets_dir"`

	// Database is optional; an empty DSN disables the database probe.
	Database store.Config `yaml:"database"`

	// Redis is optional; an empty Addr disables the cache probe and the
	// pub/sub notification sink.
	Redis cache.RedisConfig `yaml:"redis"`

	Monitor monitor.Config `yaml:"monitor"`
}

// HTTPConfig configures the health and metrics listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"` // debug|info|warn|error
	Development bool   `yaml:"development"`
}

// NotifyConfig configures the notification dispatcher.
type NotifyConfig struct {
	// Channel is the Redis pub/sub channel; empty disables publishing.
	Channel     string        `yaml:"channel"`
	Rate        float64       `yaml:"rate"`
	Burst       int           `yaml:"burst"`
	QueueSize   int           `yaml:"queue_size"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

// Default returns the configuration used for every field a file leaves
// unset.
func Default() Config {
	return Config{
		Service: "healthops",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Telemetry: observe.Config{
			ServiceName: "healthops",
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
		Notify: NotifyConfig{
			Channel:     notify.DefaultChannel,
			Rate:        10,
			Burst:       20,
			QueueSize:   256,
			SendTimeout: 5 * time.Second,
		},
		SecretsDir: secret.DefaultSecretsDir,
		Monitor:    monitor.DefaultConfig(),
	}
}

// Load reads the YAML file at path. A .env file in the working directory is
// loaded first without overriding variables already set.
func Load(ctx context.Context, path string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(ctx, data)
}

// LoadDotEnv loads path into the environment if it exists.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Parse expands, decodes, resolves and validates a YAML document.
func Parse(ctx context.Context, data []byte) (Config, error) {
	expanded, err := secret.ExpandEnv(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	if err := cfg.resolveSecrets(ctx); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolveSecrets(ctx context.Context) error {
	r := secret.NewResolver(secret.EnvProvider{}, secret.FileProvider{Dir: c.SecretsDir})
	if err := r.ResolveAll(ctx, &c.Database.DSN, &c.Redis.Password); err != nil {
		return fmt.Errorf("config: resolve secrets: %w", err)
	}
	return nil
}

// Validate reports every mistake in the daemon fields at once. The monitor
// section is checked separately by MonitorWarnings.
func (c Config) Validate() error {
	var errs []error
	if c.Service == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must not be negative"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	telemetry := c.Telemetry
	if telemetry.ServiceName == "" {
		telemetry.ServiceName = c.Service
	}
	if err := telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Database.DSN != "" {
		switch c.Database.Driver {
		case store.DriverSQLite, store.DriverMySQL, store.DriverPostgres:
		default:
			errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
		}
	}
	if c.Notify.Rate < 0 || c.Notify.Burst < 0 || c.Notify.QueueSize < 0 {
		errs = append(errs, errors.New("notify limits must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// MonitorWarnings reports monitor settings the orchestrator tolerates at
// runtime, such as a negative check timeout that marks its target unhealthy.
// They never fail a load.
func (c Config) MonitorWarnings() error {
	return c.Monitor.Validate()
}

// DispatcherConfig converts the notify section.
func (c Config) DispatcherConfig() notify.DispatcherConfig {
	return notify.DispatcherConfig{
		QueueSize:   c.Notify.QueueSize,
		SendTimeout: c.Notify.SendTimeout,
		RateLimit: resilience.RateLimiterConfig{
			Rate:  c.Notify.Rate,
			Burst: c.Notify.Burst,
		},
	}
}
