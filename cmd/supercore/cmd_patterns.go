// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"crypto/sha256"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/picore-systems/supercore/services/shield"
	"github.com/picore-systems/supercore/services/shield/enforcement"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the embedded volatility pattern pack",
}

// verifyPatterns fingerprints the embedded pattern pack and confirms it
// parses and compiles. Operators use the checksum to confirm a binary
// carries the expected rule set.
var patternsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify and fingerprint the embedded patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := enforcement.VolatilityPatterns

		var file shield.PatternFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("embedded pattern pack is malformed: %w", err)
		}
		if err := file.Compile(); err != nil {
			return fmt.Errorf("embedded pattern pack has invalid rules: %w", err)
		}

		patterns := 0
		for _, category := range file.Categories {
			patterns += len(category.Patterns)
		}

		hash := sha256.Sum256(data)
		fmt.Println("--- Embedded Pattern Verification ---")
		fmt.Printf("Pattern byte size: %d bytes\n", len(data))
		fmt.Printf("Categories: %d, patterns: %d\n", len(file.Categories), patterns)
		fmt.Printf("SHA256 Fingerprint: %x\n", hash)
		fmt.Println("-------------------------------------")
		return nil
	},
}

// dumpPatterns prints the raw embedded YAML.
var patternsDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the embedded pattern pack",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(string(enforcement.VolatilityPatterns))
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsVerifyCmd)
	patternsCmd.AddCommand(patternsDumpCmd)
}
