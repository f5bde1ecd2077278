// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the supercore runtime configuration.
//
// Configuration comes from a single YAML file; every field has an
// explicit default so a missing file yields a fully functional local
// setup (in-memory ledger, static compliance source, tracing disabled).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	// Port is the HTTP command-surface port.
	Port int `yaml:"port" validate:"gt=0,lte=65535"`

	// SupervisionInterval is the controller's monitoring loop period.
	SupervisionInterval time.Duration `yaml:"supervision_interval" validate:"gt=0"`

	// NodePoolSize is the number of worker nodes one acceleration cycle
	// synthesizes.
	NodePoolSize int `yaml:"node_pool_size" validate:"gt=0"`

	// ComplianceURL is the external compliance source endpoint. Empty
	// selects the static always-compliant source (local development).
	ComplianceURL string `yaml:"compliance_url" validate:"omitempty,url"`

	// SealKey is the process-wide keyed-hash key.
	SealKey string `yaml:"seal_key" validate:"required"`

	// LedgerPath is the directory for the badger transaction archive.
	// Empty disables archiving (pure in-memory log).
	LedgerPath string `yaml:"ledger_path"`

	// RateLimitRPS and RateLimitBurst configure the command-surface
	// token bucket. RPS of 0 disables limiting.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" validate:"gte=0"`

	// OTelEndpoint is the OTLP gRPC collector address. Empty disables
	// tracing.
	OTelEndpoint string `yaml:"otel_endpoint"`

	// LogDir enables JSON file logging. Empty keeps stderr only.
	LogDir string `yaml:"log_dir"`

	// GinMode sets the HTTP framework mode.
	GinMode string `yaml:"gin_mode" validate:"omitempty,oneof=debug release test"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Port:                12310,
		SupervisionInterval: 10 * time.Second,
		NodePoolSize:        1000,
		SealKey:             "supercore-local-dev",
		RateLimitRPS:        50,
		RateLimitBurst:      100,
		GinMode:             "release",
	}
}

// Load reads a YAML config file, fills defaults for omitted fields, and
// validates the result. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg = applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints via the validator tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyDefaults restores defaults for fields the YAML zeroed out by
// omission.
func applyDefaults(cfg Config) Config {
	def := Default()
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.SupervisionInterval == 0 {
		cfg.SupervisionInterval = def.SupervisionInterval
	}
	if cfg.NodePoolSize == 0 {
		cfg.NodePoolSize = def.NodePoolSize
	}
	if cfg.SealKey == "" {
		cfg.SealKey = def.SealKey
	}
	if cfg.GinMode == "" {
		cfg.GinMode = def.GinMode
	}
	return cfg
}
