package main

import (
	"os"

	"github.com/Brownie44l1/quickdraw-api/cmd/server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
