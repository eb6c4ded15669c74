package main

import (
	"os"

	"github.com/openclaw/skillforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
