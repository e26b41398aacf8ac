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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/countergame/services/counter"
)

// failingKV returns err from every operation.
type failingKV struct{ err error }

func (f failingKV) Get(ctx context.Context, key string) ([]byte, error)      { return nil, f.err }
func (f failingKV) Set(ctx context.Context, key string, value []byte) error { return f.err }
func (f failingKV) Delete(ctx context.Context, key string) error            { return f.err }
func (f failingKV) Close() error                                            { return nil }

func sampleHistory() []counter.ChangeRecord {
	s := counter.Reduce(counter.Reduce(counter.InitialState(), counter.Increment(5)), counter.Decrement(2))
	return s.History
}

func TestHistoryRepository_LoadMissingKey(t *testing.T) {
	repo := NewHistoryRepository(NewMemoryStore())

	history, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestHistoryRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	repo := NewHistoryRepository(kv)

	want := sampleHistory()
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	state := counter.Rehydrate(got)
	assert.Equal(t, 3, state.Count)
}

func TestHistoryRepository_WireFormat(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	repo := NewHistoryRepository(kv)

	require.NoError(t, repo.Save(ctx, sampleHistory()[:1]))

	raw, err := kv.Get(ctx, DefaultHistoryKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"previousCount":0,"changeValue":5,"message":"+5 (New value: 5)"}]`, string(raw))
}

func TestHistoryRepository_SaveEmptyWritesArray(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	repo := NewHistoryRepository(kv)

	require.NoError(t, repo.Save(ctx, nil))
	raw, err := kv.Get(ctx, DefaultHistoryKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestHistoryRepository_CorruptData(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{{"},
		{"object instead of array", `{"previousCount":1}`},
		{"wrong field type", `[{"previousCount":"zero","changeValue":1,"message":"x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryStore()
			require.NoError(t, kv.Set(ctx, DefaultHistoryKey, []byte(tt.raw)))
			repo := NewHistoryRepository(kv)

			history, err := repo.Load(ctx)
			require.Error(t, err)
			assert.NotNil(t, history)
			assert.Empty(t, history)

			var corrupt *CorruptHistoryError
			assert.True(t, errors.As(err, &corrupt))
			assert.ErrorIs(t, err, counter.ErrCorruptHistory)

			// The stored value is left in place.
			raw, err := kv.Get(ctx, DefaultHistoryKey)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, string(raw))
		})
	}
}

func TestHistoryRepository_NullIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	require.NoError(t, kv.Set(ctx, DefaultHistoryKey, []byte("null")))

	history, err := NewHistoryRepository(kv).Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestHistoryRepository_StorageErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	repo := NewHistoryRepository(failingKV{err: boom})

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, counter.ErrCorruptHistory)

	assert.ErrorIs(t, repo.Save(ctx, sampleHistory()), boom)
	assert.ErrorIs(t, repo.Clear(ctx), boom)
}

func TestHistoryRepository_CustomKeyAndClear(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	repo := NewHistoryRepository(kv, WithKey("counter/history"))
	assert.Equal(t, "counter/history", repo.Key())

	require.NoError(t, repo.Save(ctx, sampleHistory()))
	_, err := kv.Get(ctx, "counter/history")
	require.NoError(t, err)
	_, err = kv.Get(ctx, DefaultHistoryKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Clear(ctx))
	_, err = kv.Get(ctx, "counter/history")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryRepository_Spans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(ctx) }()

	kv := NewMemoryStore()
	repo := NewHistoryRepository(kv, WithTracerProvider(tp))

	require.NoError(t, repo.Save(ctx, sampleHistory()))
	_, err := repo.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, kv.Set(ctx, DefaultHistoryKey, []byte("garbage")))
	_, err = repo.Load(ctx)
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "HistoryRepository.Save", spans[0].Name)
	assert.Equal(t, "HistoryRepository.Load", spans[1].Name)
	assert.Equal(t, codes.Unset, spans[1].Status.Code)
	assert.Equal(t, codes.Error, spans[2].Status.Code)
}

func TestHistoryRepository_SessionIntegration(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	repo := NewHistoryRepository(kv)

	s, err := counter.Open(ctx, repo)
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, counter.Increment(5))
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, counter.Decrement(2))
	require.NoError(t, err)

	reopened, err := counter.Open(ctx, NewHistoryRepository(kv))
	require.NoError(t, err)
	assert.True(t, s.State().Equal(reopened.State()))

	// Corrupt data: the session starts fresh and the first change overwrites it.
	require.NoError(t, kv.Set(ctx, DefaultHistoryKey, []byte("not-json")))
	fresh, err := counter.Open(ctx, repo)
	require.NoError(t, err)
	assert.True(t, fresh.Recovered())
	assert.Equal(t, 0, fresh.State().Count)

	_, err = fresh.Dispatch(ctx, counter.Increment(1))
	require.NoError(t, err)
	history, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
