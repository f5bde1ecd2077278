// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package shield

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// PatternFile is the parsed form of the embedded volatility pattern pack.
type PatternFile struct {
	Categories []Category `yaml:"categories"`
}

// Category groups related volatility patterns. Categories are evaluated
// from highest to lowest priority.
type Category struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Priority    int       `yaml:"priority"`
	Patterns    []Pattern `yaml:"patterns"`
}

// Pattern is a single volatility rule. A matching pattern contributes its
// Increment to the payload's accumulated volatility score exactly once,
// regardless of how many times it matches.
type Pattern struct {
	Id          string  `yaml:"id"`
	Description string  `yaml:"description"`
	Regex       string  `yaml:"regex"`
	Increment   float64 `yaml:"increment"`

	compiled *regexp.Regexp `yaml:"-"`
}

// Compile compiles every pattern regex and validates increments.
func (f *PatternFile) Compile() error {
	for i := range f.Categories {
		for j := range f.Categories[i].Patterns {
			pattern := &f.Categories[i].Patterns[j]
			if pattern.Increment <= 0 {
				return fmt.Errorf("pattern %s: increment must be positive, got %v",
					pattern.Id, pattern.Increment)
			}
			re, err := regexp.Compile(pattern.Regex)
			if err != nil {
				return fmt.Errorf("failed to compile the regex %s: %w", pattern.Regex, err)
			}
			pattern.compiled = re
		}
	}
	return nil
}

// SortByPriority orders categories from highest to lowest priority.
func (f *PatternFile) SortByPriority() {
	sort.Slice(f.Categories, func(i, j int) bool {
		return f.Categories[i].Priority > f.Categories[j].Priority
	})
}

// QuarantineRecord is the audit entry kept for every quarantined payload.
type QuarantineRecord struct {
	ID              string    `json:"id"`
	Categories      []string  `json:"categories"`
	VolatilityScore float64   `json:"volatility_score"`
	Quarantined     bool      `json:"quarantined"`
	Timestamp       time.Time `json:"timestamp"`
}

// QuarantineError reports that a payload exceeded the quarantine
// threshold. The original payload is never carried on the error.
type QuarantineError struct {
	Score      float64
	Categories []string
}

func (e *QuarantineError) Error() string {
	return fmt.Sprintf("payload quarantined: volatility score %.2f (categories: %s)",
		e.Score, strings.Join(e.Categories, ", "))
}
