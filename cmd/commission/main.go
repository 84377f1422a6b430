package main

import (
	"os"

	"github.com/bank-melli/commission/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
