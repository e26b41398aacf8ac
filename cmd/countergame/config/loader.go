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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/countergame/pkg/logging"
)

// configValidate checks CounterConfig struct tags.
var configValidate = validator.New()

// BaseDir returns ~/.countergame.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".countergame"), nil
}

// DefaultPath returns ~/.countergame/config.yaml.
func DefaultPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file at path, creating it with defaults first if
// it does not exist. An empty path means DefaultPath. Notices about first
// run are written to notice, which may be nil.
//
// Fields missing from the file keep their default values. Paths starting
// with ~ are expanded. The result is validated.
func Load(path string, notice io.Writer) (CounterConfig, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return CounterConfig{}, err
		}
		path = p
	}
	path = logging.ExpandPath(path)
	defaults := DefaultConfig(filepath.Dir(path))

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if notice != nil {
			fmt.Fprintf(notice, " First run detected, creating the config at %s\n", path)
		}
		if err := createDefault(path, defaults); err != nil {
			return CounterConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return CounterConfig{}, fmt.Errorf("failed to read the config file %w", err)
	}
	cfg, err := Parse(data, defaults)
	if err != nil {
		return CounterConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over defaults, expands paths and validates.
func Parse(data []byte, defaults CounterConfig) (CounterConfig, error) {
	cfg := defaults
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CounterConfig{}, fmt.Errorf("failed to parse the config: %w", err)
	}
	cfg.Storage.Path = logging.ExpandPath(cfg.Storage.Path)
	cfg.Logging.Dir = logging.ExpandPath(cfg.Logging.Dir)
	cfg.Tracing.File = logging.ExpandPath(cfg.Tracing.File)

	if err := Validate(cfg); err != nil {
		return CounterConfig{}, err
	}
	return cfg, nil
}

// Validate checks the config against its validation tags.
func Validate(cfg CounterConfig) error {
	if err := configValidate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func createDefault(path string, cfg CounterConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
