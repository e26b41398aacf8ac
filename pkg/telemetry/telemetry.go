// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry sets up OpenTelemetry tracing for countergame.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrNilContext is returned when Init is given a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unsupported TraceExporter.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")

	// ErrNoWriter is returned when the stdout exporter has no destination.
	ErrNoWriter = errors.New("telemetry: stdout exporter needs a writer")
)

// Exporter names.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this program in exported spans.
	ServiceName string

	// ServiceVersion is the version string recorded on spans.
	ServiceVersion string

	// TraceExporter selects the exporter: "stdout" or "none".
	TraceExporter string

	// Writer receives JSON spans from the stdout exporter.
	Writer io.Writer

	// PrettyPrint indents exported spans.
	PrettyPrint bool
}

// DefaultConfig returns tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "countergame",
		ServiceVersion: "1.0.0",
		TraceExporter:  ExporterNone,
	}
}

// Init builds a TracerProvider for the configured exporter.
//
// Description:
//
//	The provider is returned rather than installed globally so callers
//	hand it to the components that trace. With ExporterNone a no-op
//	provider is returned and shutdown does nothing.
//
// Inputs:
//
//	ctx - Context for initialization.
//	cfg - Telemetry configuration.
//
// Outputs:
//
//	trace.TracerProvider - Provider to create tracers from.
//	shutdown - Flushes and stops the exporter. Must be called.
//	error - Non-nil if initialization fails.
func Init(ctx context.Context, cfg Config) (trace.TracerProvider, func(context.Context) error, error) {
	if ctx == nil {
		return nil, nil, ErrNilContext
	}

	var exporter sdktrace.SpanExporter
	switch cfg.TraceExporter {
	case "", ExporterNone:
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil

	case ExporterStdout:
		if cfg.Writer == nil {
			return nil, nil, ErrNoWriter
		}
		opts := []stdouttrace.Option{stdouttrace.WithWriter(cfg.Writer)}
		if cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exp, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create exporter: %w", err)
		}
		exporter = exp

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return tp, tp.Shutdown, nil
}
