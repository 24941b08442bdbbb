package main

import (
	"os"

	"github.com/fachebot/cross-swap-api/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
