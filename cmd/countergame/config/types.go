// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"path/filepath"
	"time"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// CounterConfig is the layout of ~/.countergame/config.yaml.
type CounterConfig struct {
	// Storage: where the history list is persisted
	Storage StorageConfig `yaml:"storage"`

	// UI: widget defaults
	UI UIConfig `yaml:"ui"`

	// Logging: level and optional log directory
	Logging LoggingConfig `yaml:"logging"`

	// Tracing: optional span export
	Tracing TracingConfig `yaml:"tracing"`
}

// StorageConfig selects the history backend and its key.
type StorageConfig struct {
	Backend    string        `yaml:"backend" validate:"required,oneof=badger memory"`
	Path       string        `yaml:"path" validate:"required_if=Backend badger"`
	Key        string        `yaml:"key" validate:"required,max=256"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

// UIConfig holds the interactive widget defaults.
type UIConfig struct {
	DefaultStep string `yaml:"default_step" validate:"required,numeric"`
	HistoryRows int    `yaml:"history_rows" validate:"gte=1,lte=200"`
}

// LoggingConfig sets the log level and the optional JSON log directory.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// TracingConfig enables span export. An empty File disables tracing.
type TracingConfig struct {
	File string `yaml:"file"`
}

// DefaultConfig returns the configuration written on first run. Paths live
// under base, normally ~/.countergame.
func DefaultConfig(base string) CounterConfig {
	return CounterConfig{
		Storage: StorageConfig{
			Backend:    BackendBadger,
			Path:       filepath.Join(base, "data"),
			Key:        "history",
			SyncWrites: true,
			GCInterval: 10 * time.Minute,
		},
		UI: UIConfig{
			DefaultStep: "1",
			HistoryRows: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(base, "logs"),
		},
	}
}
