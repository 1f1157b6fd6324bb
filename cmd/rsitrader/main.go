package main

import (
	"os"

	"github.com/rustyeddy/rsitrader/cmd/rsitrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
