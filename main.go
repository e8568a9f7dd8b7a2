package main

import (
	"os"

	"github.com/leftmike/kvcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
