package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bank-melli/commission/internal/api"
	"github.com/bank-melli/commission/internal/cmd/base"
	"github.com/bank-melli/commission/internal/version"
	"github.com/bank-melli/commission/pkg/outbox"
	"github.com/bank-melli/commission/pkg/tracing"
)

type Command struct {
	*base.Command

	flagConfig string
	flagAddr   string
}

func (c *Command) Synopsis() string {
	return "Run the commission server"
}

func (c *Command) Help() string {
	return `Usage: commission serve [options]

  Run the commission HTTP API. When the kafka block is enabled the outbox
  relay runs alongside the server and publishes committed events.

  Every setting can be overridden with a COMMISSION_* environment variable,
  for example COMMISSION_DATABASE_URL or COMMISSION_NUMBERING_STRATEGY.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("serve", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "",
		"Path to the HCL config file. Defaults and environment overrides apply without one.",
	)
	f.StringVar(
		&c.flagAddr, "addr", "",
		"Address to listen on, overriding server.addr.",
	)

	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}
	if c.flagAddr != "" {
		cfg.Server.Addr = c.flagAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := tracing.Init(cfg.Tracing.ServiceName, version.Version, os.Stdout)
		if err != nil {
			c.UI.Error(fmt.Sprintf("error initializing tracing: %v", err))
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				c.Log.Warn("error shutting down tracer provider", "error", err)
			}
		}()
	}

	db, err := c.ConnectDB(cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	svc, err := c.NewService(cfg, db)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error initializing commission service: %v", err))
		return 1
	}

	if cfg.Kafka.Enabled {
		relay, err := outbox.New(outbox.Config{
			DB:           db,
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			PollInterval: cfg.Kafka.PollIntervalDuration(),
			BatchSize:    cfg.Kafka.BatchSize,
			Logger:       c.Log,
		})
		if err != nil {
			c.UI.Error(fmt.Sprintf("error initializing outbox relay: %v", err))
			return 1
		}
		go func() {
			if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.Log.Error("outbox relay exited", "error", err)
			}
		}()
		defer relay.Stop()
	}

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(api.Server{
			Service: svc,
			Logger:  c.Log.Named("api"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Log.Info("listening", "addr", server.Addr, "version", version.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			c.UI.Error(fmt.Sprintf("error running server: %v", err))
			return 1
		}
	case <-ctx.Done():
		c.Log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		c.UI.Error(fmt.Sprintf("error shutting down server: %v", err))
		return 1
	}

	return 0
}
