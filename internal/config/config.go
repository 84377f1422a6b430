// Package config loads the commission server configuration from an HCL file,
// then applies COMMISSION_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"

	"github.com/bank-melli/commission/pkg/database"
	"github.com/bank-melli/commission/pkg/docnum"
	"github.com/bank-melli/commission/pkg/fiscal"
	"github.com/bank-melli/commission/pkg/numbering"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COMMISSION_"

// Config is the server configuration.
type Config struct {
	Database  *Database  `hcl:"database,block" envPrefix:"DATABASE_"`
	Numbering *Numbering `hcl:"numbering,block" envPrefix:"NUMBERING_"`
	Kafka     *Kafka     `hcl:"kafka,block" envPrefix:"KAFKA_"`
	Server    *Server    `hcl:"server,block" envPrefix:"SERVER_"`
	Tracing   *Tracing   `hcl:"tracing,block" envPrefix:"TRACING_"`

	LogLevel string `hcl:"log_level,optional" env:"LOG_LEVEL"`
}

// Database configures the database connection.
type Database struct {
	Driver   string `hcl:"driver,optional" env:"DRIVER"`
	URL      string `hcl:"url,optional" env:"URL"`
	Host     string `hcl:"host,optional" env:"HOST"`
	Port     int    `hcl:"port,optional" env:"PORT"`
	User     string `hcl:"user,optional" env:"USER"`
	Password string `hcl:"password,optional" env:"PASSWORD"`
	DBName   string `hcl:"dbname,optional" env:"DBNAME"`
	SSLMode  string `hcl:"sslmode,optional" env:"SSLMODE"`
	Path     string `hcl:"path,optional" env:"PATH"`

	MaxIdleConns       int    `hcl:"max_idle_conns,optional" env:"MAX_IDLE_CONNS"`
	MaxOpenConns       int    `hcl:"max_open_conns,optional" env:"MAX_OPEN_CONNS"`
	ConnMaxLifetime    string `hcl:"conn_max_lifetime,optional" env:"CONN_MAX_LIFETIME"`
	SlowQueryThreshold string `hcl:"slow_query_threshold,optional" env:"SLOW_QUERY_THRESHOLD"`

	// Migrate applies the embedded migrations at startup.
	Migrate bool `hcl:"migrate,optional" env:"MIGRATE"`
}

// Numbering configures document number allocation.
type Numbering struct {
	Strategy       string `hcl:"strategy,optional" env:"STRATEGY"`
	MaxAttempts    int    `hcl:"max_attempts,optional" env:"MAX_ATTEMPTS"`
	BackoffInitial string `hcl:"backoff_initial,optional" env:"BACKOFF_INITIAL"`
	BackoffMax     string `hcl:"backoff_max,optional" env:"BACKOFF_MAX"`

	Schemes []*Scheme `hcl:"scheme,block"`
}

// Scheme overrides one of the default numbering schemes.
type Scheme struct {
	Name      string  `hcl:"name,label"`
	Prefix    *string `hcl:"prefix,optional"`
	Calendar  string  `hcl:"calendar,optional"`
	Separator string  `hcl:"separator,optional"`
	Width     int     `hcl:"width,optional"`
}

// Kafka configures the outbox relay.
type Kafka struct {
	Enabled      bool     `hcl:"enabled,optional" env:"ENABLED"`
	Brokers      []string `hcl:"brokers,optional" env:"BROKERS" envSeparator:","`
	Topic        string   `hcl:"topic,optional" env:"TOPIC"`
	PollInterval string   `hcl:"poll_interval,optional" env:"POLL_INTERVAL"`
	BatchSize    int      `hcl:"batch_size,optional" env:"BATCH_SIZE"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr            string `hcl:"addr,optional" env:"ADDR"`
	ShutdownTimeout string `hcl:"shutdown_timeout,optional" env:"SHUTDOWN_TIMEOUT"`
}

// Tracing configures OpenTelemetry.
type Tracing struct {
	Enabled     bool   `hcl:"enabled,optional" env:"ENABLED"`
	ServiceName string `hcl:"service_name,optional" env:"SERVICE_NAME"`
}

// Load reads the HCL file at path from fs, when path is not empty, then
// applies defaults and environment overrides and validates the result.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		src, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := hclsimple.Decode(path, src, nil, cfg); err != nil {
			return nil, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("error parsing environment overrides: %w", err)
	}
	// Overrides may switch drivers, which brings its own defaults.
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database == nil {
		cfg.Database = &Database{}
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = database.DriverPostgres
	}
	if cfg.Database.Driver == database.DriverPostgres && cfg.Database.URL == "" {
		if cfg.Database.Host == "" {
			cfg.Database.Host = "localhost"
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
		if cfg.Database.DBName == "" {
			cfg.Database.DBName = "commission"
		}
	}
	if cfg.Database.Driver == database.DriverSQLite && cfg.Database.Path == "" {
		cfg.Database.Path = ".commission/commission.db"
	}

	if cfg.Numbering == nil {
		cfg.Numbering = &Numbering{}
	}
	if cfg.Numbering.Strategy == "" {
		cfg.Numbering.Strategy = "scan"
	}

	if cfg.Kafka == nil {
		cfg.Kafka = &Kafka{}
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "commission.events"
	}

	if cfg.Server == nil {
		cfg.Server = &Server{}
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	if cfg.Tracing == nil {
		cfg.Tracing = &Tracing{}
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "commission"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		result = multierror.Append(result,
			fmt.Errorf("database.driver: unsupported driver %q (supported: postgres, sqlite)", c.Database.Driver))
	}
	if _, err := c.DatabaseConfig(); err != nil {
		result = multierror.Append(result, err)
	}

	switch c.Numbering.Strategy {
	case "scan", "counter":
	default:
		result = multierror.Append(result,
			fmt.Errorf("numbering.strategy: unknown strategy %q (supported: scan, counter)", c.Numbering.Strategy))
	}
	if c.Numbering.MaxAttempts < 0 {
		result = multierror.Append(result, fmt.Errorf("numbering.max_attempts: must not be negative"))
	}
	if _, err := c.Retry(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := c.Schemes(); err != nil {
		result = multierror.Append(result, err)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			result = multierror.Append(result, fmt.Errorf("kafka.brokers: at least one broker is required"))
		}
		if _, err := parseDuration("kafka.poll_interval", c.Kafka.PollInterval); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if _, err := parseDuration("server.shutdown_timeout", c.Server.ShutdownTimeout); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// DatabaseConfig returns the connection settings for database.Connect.
func (c *Config) DatabaseConfig() (database.Config, error) {
	d := c.Database

	lifetime, err := parseDuration("database.conn_max_lifetime", d.ConnMaxLifetime)
	if err != nil {
		return database.Config{}, err
	}
	slow, err := parseDuration("database.slow_query_threshold", d.SlowQueryThreshold)
	if err != nil {
		return database.Config{}, err
	}

	return database.Config{
		Driver:             d.Driver,
		URL:                d.URL,
		Host:               d.Host,
		Port:               d.Port,
		User:               d.User,
		Password:           d.Password,
		DBName:             d.DBName,
		SSLMode:            d.SSLMode,
		Path:               d.Path,
		MaxIdleConns:       d.MaxIdleConns,
		MaxOpenConns:       d.MaxOpenConns,
		ConnMaxLifetime:    lifetime,
		SlowQueryThreshold: slow,
	}, nil
}

// Retry returns the issuance retry settings. Zero values fall back to the
// docnum defaults.
func (c *Config) Retry() (docnum.RetryConfig, error) {
	initial, err := parseDuration("numbering.backoff_initial", c.Numbering.BackoffInitial)
	if err != nil {
		return docnum.RetryConfig{}, err
	}
	maxInterval, err := parseDuration("numbering.backoff_max", c.Numbering.BackoffMax)
	if err != nil {
		return docnum.RetryConfig{}, err
	}
	return docnum.RetryConfig{
		MaxAttempts:     c.Numbering.MaxAttempts,
		InitialInterval: initial,
		MaxInterval:     maxInterval,
	}, nil
}

// Schemes returns the default schemes with the configured overrides applied.
func (c *Config) Schemes() (*numbering.Schemes, error) {
	schemes := numbering.DefaultSchemes()

	var result *multierror.Error
	for _, o := range c.Numbering.Schemes {
		var target *numbering.Scheme
		switch o.Name {
		case numbering.SchemeCase:
			target = &schemes.Case
		case numbering.SchemeReferralLetter:
			target = &schemes.ReferralLetter
		case numbering.SchemeSocialWorkCase:
			target = &schemes.SocialWorkCase
		default:
			result = multierror.Append(result, fmt.Errorf("numbering.scheme %q: unknown scheme (supported: %s)",
				o.Name, strings.Join([]string{
					numbering.SchemeCase,
					numbering.SchemeReferralLetter,
					numbering.SchemeSocialWorkCase,
				}, ", ")))
			continue
		}

		if o.Prefix != nil {
			target.Prefix = *o.Prefix
		}
		if o.Calendar != "" {
			cal, err := fiscal.ParseCalendar(o.Calendar)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("numbering.scheme %q: %w", o.Name, err))
				continue
			}
			target.Calendar = cal
		}
		if o.Separator != "" {
			target.Separator = o.Separator
		}
		if o.Width != 0 {
			target.Width = o.Width
		}
		if err := target.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("numbering.scheme %q: %w", o.Name, err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &schemes, nil
}

// PollIntervalDuration returns the relay poll interval, zero meaning the
// relay default.
func (k *Kafka) PollIntervalDuration() time.Duration {
	d, _ := parseDuration("kafka.poll_interval", k.PollInterval)
	return d
}

// ShutdownTimeoutDuration returns the graceful shutdown timeout (default: 10s).
func (s *Server) ShutdownTimeoutDuration() time.Duration {
	d, _ := parseDuration("server.shutdown_timeout", s.ShutdownTimeout)
	if d == 0 {
		d = 10 * time.Second
	}
	return d
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}
