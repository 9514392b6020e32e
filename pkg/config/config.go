// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the client configuration from
// ~/.attest/attest.yaml, creating a commented default file on first run.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that marshals to and from YAML in the
// human-readable "30s" / "1m30s" form.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string ("10s") or a bare
// number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std converts back to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full client configuration.
type Config struct {
	Node    NodeConfig    `yaml:"node" validate:"required"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// NodeConfig points the client at the network node's RPC endpoint.
type NodeConfig struct {
	// URL is the JSON-RPC endpoint of the node.
	URL string `yaml:"url" validate:"required,url"`

	// APIKey authenticates RPC calls; empty disables the key parameter.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single RPC round trip.
	Timeout Duration `yaml:"timeout" validate:"min=0"`

	// RequestsPerSecond rate-limits outgoing RPC calls. Zero disables
	// limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`

	// EpochPollInterval is how often the run loop re-reads the epoch
	// while waiting for a session to open.
	EpochPollInterval Duration `yaml:"epoch_poll_interval" validate:"min=0"`
}

// APIConfig configures the local HTTP surface consumed by the UI layer.
type APIConfig struct {
	// ListenAddr is the bind address of the local API. Empty disables it.
	ListenAddr string `yaml:"listen_addr"`
}

// StorageConfig configures snapshot persistence.
type StorageConfig struct {
	// DataDir is the BadgerDB directory. Supports a leading "~".
	DataDir string `yaml:"data_dir" validate:"required"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	// Dir, when set, enables JSON file logging.
	Dir string `yaml:"dir"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Node: NodeConfig{
			URL:               "http://localhost:9009",
			Timeout:           Duration(30 * time.Second),
			RequestsPerSecond: 10,
			EpochPollInterval: Duration(10 * time.Second),
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1:9044",
		},
		Storage: StorageConfig{
			DataDir: "~/.attest/data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
