package operator

import (
	"github.com/mitchellh/cli"

	"github.com/bank-melli/commission/internal/cmd/base"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Perform operator-specific tasks"
}

func (c *Command) Help() string {
	return `Usage: commission operator <subcommand> [options] [args]

  This command groups subcommands for operators of the commission service:
  inspecting document number scopes and the event outbox.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}
