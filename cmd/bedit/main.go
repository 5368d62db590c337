package main

import (
	"os"

	"github.com/thoulee21/bedit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
