// Package main is the entry point for the grabsome CLI.
package main

import (
	"os"

	"github.com/grabsome/grabsome/cmd/grabsome/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
