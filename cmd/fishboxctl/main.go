package main

import (
	"os"

	"fishbox/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
