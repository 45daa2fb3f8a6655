package main

import (
	"os"

	"github.com/tajtiattila/pngdepth/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args, os.Stdout, os.Stderr))
}
