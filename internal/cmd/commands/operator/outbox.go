package operator

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bank-melli/commission/internal/cmd/base"
	"github.com/bank-melli/commission/pkg/outbox"
)

type OutboxStatsCommand struct {
	*base.Command

	flagConfig string
}

func (c *OutboxStatsCommand) Synopsis() string {
	return "Show event outbox counts by status"
}

func (c *OutboxStatsCommand) Help() string {
	return `Usage: commission operator outbox-stats [options]

  This command prints how many outbox events are pending, published and
  failed.` + c.Flags().Help()
}

func (c *OutboxStatsCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("outbox-stats", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL config file")
	return f
}

func (c *OutboxStatsCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}
	db, err := c.ConnectDB(cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	stats, err := outbox.GetStats(db)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	c.UI.Output(fmt.Sprintf("pending:   %d", stats.Pending))
	c.UI.Output(fmt.Sprintf("published: %d", stats.Published))
	c.UI.Output(fmt.Sprintf("failed:    %d", stats.Failed))
	return 0
}

type RelayRetryCommand struct {
	*base.Command

	flagConfig  string
	flagLimit   int
	flagCleanup time.Duration
}

func (c *RelayRetryCommand) Synopsis() string {
	return "Republish failed outbox events"
}

func (c *RelayRetryCommand) Help() string {
	return `Usage: commission operator relay-retry [options]

  This command resets failed outbox events to pending and publishes them to
  the configured Kafka topic. With -cleanup it also deletes published events
  older than the given age.` + c.Flags().Help()
}

func (c *RelayRetryCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("relay-retry", flag.ContinueOnError))

	f.StringVar(&c.flagConfig, "config", "", "Path to the HCL config file")
	f.IntVar(
		&c.flagLimit, "limit", 100,
		"Maximum number of failed events to retry.",
	)
	f.DurationVar(
		&c.flagCleanup, "cleanup", 0,
		"Delete published events older than this age, e.g. 720h.",
	)

	return f
}

func (c *RelayRetryCommand) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagLimit < 1 {
		c.UI.Error("limit must be at least 1")
		return 1
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}
	db, err := c.ConnectDB(cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	relay, err := outbox.New(outbox.Config{
		DB:      db,
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		Logger:  c.Log,
	})
	if err != nil {
		c.UI.Error(fmt.Sprintf("error initializing outbox relay: %v", err))
		return 1
	}
	defer relay.Stop()

	published, err := relay.RetryFailed(context.Background(), c.flagLimit)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	c.UI.Info(fmt.Sprintf("Republished %d events", published))

	if c.flagCleanup > 0 {
		deleted, err := relay.CleanupOldEntries(c.flagCleanup)
		if err != nil {
			c.UI.Error(err.Error())
			return 1
		}
		c.UI.Info(fmt.Sprintf("Deleted %d published events", deleted))
	}

	return 0
}
