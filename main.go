package main

import (
	"os"

	"github.com/chunkforge/chunkforge/cli"
)

func main() {
	os.Exit(cli.Execute())
}
