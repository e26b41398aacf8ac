// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/countergame/services/counter"
)

// DefaultHistoryKey is the key the history list is stored under.
const DefaultHistoryKey = "history"

const tracerName = "countergame.storage.history"

// CorruptHistoryError reports a stored value that is not a valid history.
//
// HistoryRepository.Load returns it alongside an empty history so callers
// can start fresh and still log what happened.
type CorruptHistoryError struct {
	Key string
	Err error
}

func (e *CorruptHistoryError) Error() string {
	return fmt.Sprintf("corrupt history at key %q: %v", e.Key, e.Err)
}

func (e *CorruptHistoryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, counter.ErrCorruptHistory) match.
func (e *CorruptHistoryError) Is(target error) bool {
	return target == counter.ErrCorruptHistory
}

var _ counter.HistoryStore = (*HistoryRepository)(nil)

// HistoryRepository reads and writes the counter history under one key.
//
// # Thread Safety
//
// Safe for concurrent use if the underlying KeyValue is.
type HistoryRepository struct {
	kv     KeyValue
	key    string
	tracer trace.Tracer
}

// RepositoryOption configures a HistoryRepository.
type RepositoryOption func(*HistoryRepository)

// WithKey overrides DefaultHistoryKey.
func WithKey(key string) RepositoryOption {
	return func(r *HistoryRepository) {
		if key != "" {
			r.key = key
		}
	}
}

// WithTracerProvider sets the provider spans are created from.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) RepositoryOption {
	return func(r *HistoryRepository) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewHistoryRepository wraps kv.
//
// # Inputs
//
//   - kv: The storage capability. Must not be nil.
//   - opts: Optional key and tracer overrides.
//
// # Outputs
//
//   - *HistoryRepository: Ready to use. Does not own kv.
func NewHistoryRepository(kv KeyValue, opts ...RepositoryOption) *HistoryRepository {
	r := &HistoryRepository{
		kv:     kv,
		key:    DefaultHistoryKey,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the storage key in use.
func (r *HistoryRepository) Key() string { return r.key }

// Load reads the stored history.
//
// # Description
//
// A missing key yields an empty history and no error. A value that is not
// a JSON array of change records yields an empty history and a
// *CorruptHistoryError; the stored value is left untouched and is replaced
// by the next Save. Any other storage failure is returned as is.
//
// # Outputs
//
//   - []counter.ChangeRecord: The history, never nil.
//   - error: nil, *CorruptHistoryError, or a wrapped storage error.
func (r *HistoryRepository) Load(ctx context.Context) ([]counter.ChangeRecord, error) {
	ctx, span := r.tracer.Start(ctx, "HistoryRepository.Load",
		trace.WithAttributes(attribute.String("history.key", r.key)))
	defer span.End()

	raw, err := r.kv.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		span.SetAttributes(attribute.Bool("history.found", false))
		return []counter.ChangeRecord{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage read failed")
		return nil, fmt.Errorf("load history: %w", err)
	}
	span.SetAttributes(attribute.Bool("history.found", true), attribute.Int("history.bytes", len(raw)))

	var history []counter.ChangeRecord
	if err := json.Unmarshal(raw, &history); err != nil {
		corrupt := &CorruptHistoryError{Key: r.key, Err: err}
		span.RecordError(corrupt)
		span.SetStatus(codes.Error, "corrupt history")
		return []counter.ChangeRecord{}, corrupt
	}
	if history == nil {
		history = []counter.ChangeRecord{}
	}
	span.SetAttributes(attribute.Int("history.length", len(history)))
	return history, nil
}

// Save writes the full history, replacing whatever was stored.
// A nil or empty history is stored as "[]".
func (r *HistoryRepository) Save(ctx context.Context, history []counter.ChangeRecord) error {
	ctx, span := r.tracer.Start(ctx, "HistoryRepository.Save",
		trace.WithAttributes(
			attribute.String("history.key", r.key),
			attribute.Int("history.length", len(history)),
		))
	defer span.End()

	if history == nil {
		history = []counter.ChangeRecord{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("encode history: %w", err)
	}
	if err := r.kv.Set(ctx, r.key, raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage write failed")
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Clear removes the stored history entirely.
func (r *HistoryRepository) Clear(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "HistoryRepository.Clear",
		trace.WithAttributes(attribute.String("history.key", r.key)))
	defer span.End()

	if err := r.kv.Delete(ctx, r.key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage delete failed")
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
