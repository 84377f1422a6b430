package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	_ "github.com/lib/pq" // PostgreSQL driver; "sqlite" is registered by golang-migrate

	"github.com/bank-melli/commission/internal/migrate"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("commission-migrate", flag.ContinueOnError)
	driver := flags.String("driver", "postgres", "Database driver (postgres|sqlite)")
	dsn := flags.String("dsn", "", "Database connection string")
	version := flags.Bool("version", false, "Print the current schema version and exit")
	logLevel := flags.String("log-level", "info", "Log level (trace|debug|info|warn|error)")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: commission-migrate [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Applies the commission database schema.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n\n")
		fmt.Fprintf(os.Stderr, "  commission-migrate -driver=postgres -dsn=\"host=localhost user=postgres password=postgres dbname=commission port=5432 sslmode=disable\"\n")
		fmt.Fprintf(os.Stderr, "  commission-migrate -driver=sqlite -dsn=\".commission/commission.db\"\n")
	}

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "commission-migrate",
		Level: hclog.LevelFromString(*logLevel),
	})

	if *dsn == "" {
		log.Error("-dsn flag is required")
		flags.Usage()
		return 1
	}
	if *driver != "postgres" && *driver != "sqlite" {
		log.Error("unsupported driver", "driver", *driver)
		return 1
	}

	sqlDB, err := sql.Open(*driver, *dsn)
	if err != nil {
		log.Error("failed to open database", "error", err)
		return 1
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Error("failed to ping database", "error", err)
		return 1
	}

	if *version {
		v, dirty, err := migrate.GetMigrationVersion(sqlDB, *driver)
		if err != nil {
			log.Error("failed to read schema version", "error", err)
			return 1
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return 0
	}

	if err := migrate.RunMigrations(sqlDB, *driver, log); err != nil {
		log.Error("migration failed", "error", err)
		return 1
	}
	return 0
}
