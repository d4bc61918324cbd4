// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Command doodle-extract prints the text the gateway would extract from
// local documents.
package main

import (
	"os"

	"github.com/fatih/color"
)

var (
	// Version is set via ldflags during build
	Version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
