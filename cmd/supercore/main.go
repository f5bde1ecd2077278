// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "supercore",
	Short: "Autonomous service pipeline",
	Long: `supercore runs the autonomous service pipeline: compliance gate,
isolation shield, transaction ledger, capacity pool, app fleet and the
supervisory controller that ties them together.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML config file (defaults apply when omitted)")
}
