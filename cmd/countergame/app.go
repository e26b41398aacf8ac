// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AleutianAI/countergame/cmd/countergame/config"
	"github.com/AleutianAI/countergame/pkg/logging"
	"github.com/AleutianAI/countergame/pkg/telemetry"
	"github.com/AleutianAI/countergame/services/counter"
	"github.com/AleutianAI/countergame/services/counter/storage"
)

// appOptions holds the persistent CLI flags.
type appOptions struct {
	configPath string
	dataDir    string
	inMemory   bool
	logLevel   string
	traceFile  string
	metrics    bool
}

// app wires config, logging, storage and the counter session together.
type app struct {
	cfg     config.CounterConfig
	logger  *logging.Logger
	kv      storage.KeyValue
	repo    *storage.HistoryRepository
	session *counter.Session

	traceOut      *os.File
	traceShutdown func(context.Context) error
}

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig(opts appOptions, notice io.Writer) (config.CounterConfig, error) {
	cfg, err := config.Load(opts.configPath, notice)
	if err != nil {
		return config.CounterConfig{}, err
	}

	if opts.dataDir != "" {
		cfg.Storage.Backend = config.BackendBadger
		cfg.Storage.Path = logging.ExpandPath(opts.dataDir)
	}
	if opts.inMemory {
		cfg.Storage.Backend = config.BackendMemory
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.traceFile != "" {
		cfg.Tracing.File = logging.ExpandPath(opts.traceFile)
	}

	if err := config.Validate(cfg); err != nil {
		return config.CounterConfig{}, err
	}
	return cfg, nil
}

// newApp opens storage and the counter session.
//
// # Inputs
//
//   - ctx: Context for the initial history load.
//   - cfg: Resolved configuration.
//   - quiet: Disable console logging (the TUI owns the screen).
//
// # Outputs
//
//   - *app: Ready application. Call Close when done.
//   - error: Non-nil if storage cannot be opened or the history cannot be read.
func newApp(ctx context.Context, cfg config.CounterConfig, quiet bool) (*app, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "countergame",
		JSON:    cfg.Logging.JSON,
		Quiet:   quiet,
	})

	a := &app{cfg: cfg, logger: logger}

	tcfg := telemetry.DefaultConfig()
	if cfg.Tracing.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Tracing.File), 0750); err != nil {
			a.Close()
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Tracing.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		a.traceOut = f
		tcfg.TraceExporter = telemetry.ExporterStdout
		tcfg.Writer = f
	}
	tp, shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.traceShutdown = shutdown

	kv, err := openKeyValue(cfg.Storage, logger.Slog())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.kv = kv

	a.repo = storage.NewHistoryRepository(kv,
		storage.WithKey(cfg.Storage.Key),
		storage.WithTracerProvider(tp),
	)
	session, err := counter.Open(ctx, a.repo, counter.WithLogger(logger.Slog()))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = session

	logger.Debug("counter session opened",
		"backend", cfg.Storage.Backend,
		"key", a.repo.Key(),
		"count", session.State().Count,
		"session_id", session.ID(),
	)
	return a, nil
}

func openKeyValue(cfg config.StorageConfig, logger *slog.Logger) (storage.KeyValue, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	case config.BackendBadger:
		bcfg := storage.DefaultBadgerConfig(cfg.Path)
		bcfg.SyncWrites = cfg.SyncWrites
		bcfg.GCInterval = cfg.GCInterval
		bcfg.Logger = logger
		store, err := storage.OpenBadgerStore(bcfg)
		if err != nil {
			return nil, fmt.Errorf("open history store at %s: %w", cfg.Path, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close flushes spans and releases storage and log files. It tolerates a
// partially opened app.
func (a *app) Close() error {
	var errs []error
	if a.kv != nil {
		errs = append(errs, a.kv.Close())
	}
	if a.traceShutdown != nil {
		errs = append(errs, a.traceShutdown(context.Background()))
	}
	if a.traceOut != nil {
		errs = append(errs, a.traceOut.Close())
	}
	errs = append(errs, a.logger.Close())
	return errors.Join(errs...)
}
