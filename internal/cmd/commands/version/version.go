package version

import (
	"github.com/bank-melli/commission/internal/cmd/base"
	"github.com/bank-melli/commission/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version of the binary"
}

func (c *Command) Help() string {
	return `Usage: commission version

  This command prints the version of the binary.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(version.String())
	return 0
}
