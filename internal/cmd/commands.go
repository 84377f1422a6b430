package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/bank-melli/commission/internal/cmd/base"
	"github.com/bank-melli/commission/internal/cmd/commands/operator"
	"github.com/bank-melli/commission/internal/cmd/commands/serve"
	"github.com/bank-melli/commission/internal/cmd/commands/version"
)

// Commands is the mapping of all available commission commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := base.NewCommand(log, ui)

	Commands = map[string]cli.CommandFactory{
		"serve": func() (cli.Command, error) {
			return &serve.Command{Command: b}, nil
		},
		"operator": func() (cli.Command, error) {
			return &operator.Command{Command: b}, nil
		},
		"operator next-number": func() (cli.Command, error) {
			return &operator.NextNumberCommand{Command: b}, nil
		},
		"operator outbox-stats": func() (cli.Command, error) {
			return &operator.OutboxStatsCommand{Command: b}, nil
		},
		"operator relay-retry": func() (cli.Command, error) {
			return &operator.RelayRetryCommand{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
