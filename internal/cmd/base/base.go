// Package base holds what every commission subcommand shares.
package base

import (
	"bytes"
	"flag"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/bank-melli/commission/internal/commission"
	"github.com/bank-melli/commission/internal/config"
	"github.com/bank-melli/commission/internal/migrate"
	"github.com/bank-melli/commission/pkg/database"
)

// Command is embedded by every subcommand.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	// Fs is where configuration files are read from (default: the OS).
	Fs afero.Fs
}

// NewCommand returns a Command writing to log and ui.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	return &Command{
		Log: log,
		UI:  ui,
		Fs:  afero.NewOsFs(),
	}
}

// FlagSet wraps flag.FlagSet with help rendering.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help renders the flags for a command's help text.
func (f *FlagSet) Help() string {
	var buf bytes.Buffer
	buf.WriteString("\n\nOptions:\n\n")

	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&buf, "  -%s", fl.Name)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&buf, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&buf, "\n      %s\n\n", fl.Usage)
	})

	return buf.String()
}

// LoadConfig loads the configuration file at path, which may be empty to use
// defaults and environment overrides only, and applies its log level.
func (c *Command) LoadConfig(path string) (*config.Config, error) {
	fs := c.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	cfg, err := config.Load(fs, path)
	if err != nil {
		return nil, err
	}

	if level := hclog.LevelFromString(cfg.LogLevel); level != hclog.NoLevel {
		c.Log.SetLevel(level)
	}
	return cfg, nil
}

// ConnectDB connects to the configured database and, when the configuration
// asks for it, applies the migrations.
func (c *Command) ConnectDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg, err := cfg.DatabaseConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(dbCfg, c.Log.Named("database"))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if cfg.Database.Migrate {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("error getting database handle: %w", err)
		}
		if err := migrate.RunMigrations(sqlDB, dbCfg.Driver, c.Log.Named("migrate")); err != nil {
			return nil, fmt.Errorf("error running migrations: %w", err)
		}
	}

	return db, nil
}

// NewService builds the commission service from cfg.
func (c *Command) NewService(cfg *config.Config, db *gorm.DB) (*commission.Service, error) {
	schemes, err := cfg.Schemes()
	if err != nil {
		return nil, err
	}
	retry, err := cfg.Retry()
	if err != nil {
		return nil, err
	}

	return commission.New(commission.Config{
		DB:       db,
		Schemes:  schemes,
		Strategy: cfg.Numbering.Strategy,
		Retry:    retry,
		Logger:   c.Log,
	})
}
