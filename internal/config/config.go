// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package config loads asmgen's configuration file.
//
// The file is TOML:
//
//	mode = 32
//	workers = 4
//	instructions = ["add", "mov"]
//	baseline = ".asmgen/baseline"
//	trace_endpoint = "localhost:4318"
//	chart = "templates.html"
//	history = ".asmgen/history"
//	check_limit = 16
//
// Every key is optional. Unknown keys are an error.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"firefly-os.dev/tools/asmgen/internal/x86"
)

// Config is asmgen's configuration.
type Config struct {
	Mode          int      `toml:"mode"`           // CPU mode: 16 or 32.
	Workers       int      `toml:"workers"`        // Zero means GOMAXPROCS.
	Instructions  []string `toml:"instructions"`   // Mnemonics or UIDs; empty means all.
	Baseline      string   `toml:"baseline"`       // Baseline database directory.
	TraceEndpoint string   `toml:"trace_endpoint"` // OTLP/HTTP collector; empty disables tracing.
	Chart         string   `toml:"chart"`          // HTML chart output path.
	History       string   `toml:"history"`        // Shell history file; empty disables history.
	CheckLimit    int      `toml:"check_limit"`    // Argument lists checked per template.
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Mode:       32,
		Baseline:   ".asmgen/baseline",
		Chart:      "templates.html",
		CheckLimit: 16,
	}
}

// Parse decodes a configuration file's
// contents. Missing keys take their
// default values.
func Parse(name string, data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v", name, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}

		return nil, fmt.Errorf("failed to parse %s: unrecognised fields: %s", name, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", name, err)
	}

	return cfg, nil
}

// Load reads the configuration file at
// path. If path is empty, Load returns
// the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %v", err)
	}

	return Parse(path, data)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := x86.ModeFromInt(c.Mode); err != nil {
		return err
	}

	if c.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", c.Workers)
	}

	if c.CheckLimit < 0 {
		return fmt.Errorf("invalid check limit %d", c.CheckLimit)
	}

	return nil
}

// CPUMode returns the configured CPU mode.
func (c *Config) CPUMode() x86.Mode {
	mode, err := x86.ModeFromInt(c.Mode)
	if err != nil {
		return x86.Mode32
	}

	return mode
}
