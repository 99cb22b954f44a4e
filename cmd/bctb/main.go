// Package main is the entry point for the bctb CLI binary.
package main

import (
	"os"

	_ "github.com/mattn/go-sqlite3" // sqlite driver for the history store

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
