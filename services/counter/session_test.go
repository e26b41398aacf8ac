// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package counter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory HistoryStore that records saves.
type fakeStore struct {
	history []ChangeRecord
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load(ctx context.Context) ([]ChangeRecord, error) {
	if f.loadErr != nil {
		if errors.Is(f.loadErr, ErrCorruptHistory) {
			return []ChangeRecord{}, f.loadErr
		}
		return nil, f.loadErr
	}
	return slices.Clone(f.history), nil
}

func (f *fakeStore) Save(ctx context.Context, history []ChangeRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.history = slices.Clone(history)
	return nil
}

func TestOpen_NilStore(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpen_EmptyStore(t *testing.T) {
	s, err := Open(context.Background(), &fakeStore{})
	require.NoError(t, err)

	assert.True(t, InitialState().Equal(s.State()))
	assert.False(t, s.Recovered())
	assert.NotEmpty(t, s.ID())
}

func TestOpen_RehydratesFromLastRecord(t *testing.T) {
	store := &fakeStore{history: []ChangeRecord{
		{PreviousCount: 0, ChangeValue: 5, Message: "+5 (New value: 5)"},
		{PreviousCount: 5, ChangeValue: -2, Message: "-2 (New value: 3)"},
	}}

	s, err := Open(context.Background(), store, WithSessionID("fixed"))
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, 3, st.Count)
	assert.Len(t, st.History, 2)
	assert.Equal(t, "fixed", s.ID())
}

func TestOpen_CorruptHistoryFailsSoft(t *testing.T) {
	before := testutil.ToFloat64(rehydrations.WithLabelValues("corrupt"))

	store := &fakeStore{loadErr: fmt.Errorf("decode: %w", ErrCorruptHistory)}
	s, err := Open(context.Background(), store)
	require.NoError(t, err)

	assert.True(t, s.Recovered())
	assert.True(t, InitialState().Equal(s.State()))
	assert.Equal(t, before+1, testutil.ToFloat64(rehydrations.WithLabelValues("corrupt")))
}

func TestOpen_StorageErrorIsHard(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("disk gone")}
	_, err := Open(context.Background(), store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestDispatch_PersistsOnHistoryChange(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	s, err := Open(ctx, store)
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, Increment(5))
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, Decrement(2))
	require.NoError(t, err)

	assert.Equal(t, 2, store.saves)
	assert.Equal(t, s.State().History, store.history)

	// Reopening from the same store reproduces the state.
	reopened, err := Open(ctx, store)
	require.NoError(t, err)
	assert.True(t, s.State().Equal(reopened.State()))
}

func TestDispatch_NoopsDoNotPersist(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	s, err := Open(ctx, store)
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, Undo())
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, Action{Kind: ActionUnknown})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, Reset())
	require.NoError(t, err)

	assert.Equal(t, 0, store.saves)
}

func TestDispatch_UndoAndResetPersist(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	s, err := Open(ctx, store)
	require.NoError(t, err)

	_, _ = s.Dispatch(ctx, Increment(1))
	_, _ = s.Dispatch(ctx, Increment(2))

	st, err := s.Dispatch(ctx, Undo())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)
	assert.Len(t, store.history, 1)

	st, err = s.Dispatch(ctx, Reset())
	require.NoError(t, err)
	assert.Equal(t, 0, st.Count)
	assert.Empty(t, store.history)
	assert.Equal(t, 4, store.saves)
}

func TestDispatch_ResetOverwritesCorruptData(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{loadErr: ErrCorruptHistory}
	s, err := Open(ctx, store)
	require.NoError(t, err)
	require.True(t, s.Recovered())

	store.loadErr = nil
	_, err = s.Dispatch(ctx, Reset())
	require.NoError(t, err)

	assert.Equal(t, 1, store.saves)
	assert.False(t, s.Recovered())
}

func TestDispatch_SaveFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	s, err := Open(ctx, store)
	require.NoError(t, err)

	before := testutil.ToFloat64(persistFailures.WithLabelValues("save"))
	store.saveErr = errors.New("read-only")

	st, err := s.Dispatch(ctx, Increment(4))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.saveErr)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 4, s.State().Count)
	assert.Equal(t, before+1, testutil.ToFloat64(persistFailures.WithLabelValues("save")))

	// Once storage recovers the full history is written.
	store.saveErr = nil
	_, err = s.Dispatch(ctx, Increment(1))
	require.NoError(t, err)
	assert.Len(t, store.history, 2)
}

func TestDispatch_UpdatesMetrics(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, &fakeStore{})
	require.NoError(t, err)

	before := testutil.ToFloat64(actionsTotal.WithLabelValues("increment"))
	_, err = s.Dispatch(ctx, Increment(7))
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(actionsTotal.WithLabelValues("increment")))
	assert.Equal(t, float64(7), testutil.ToFloat64(countValue))
	assert.Equal(t, float64(1), testutil.ToFloat64(historyLength))
}

func TestSession_StateIsACopy(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, &fakeStore{})
	require.NoError(t, err)
	_, _ = s.Dispatch(ctx, Increment(1))

	st := s.State()
	st.History[0].Message = "tampered"
	st.Count = 100

	assert.Equal(t, 1, s.State().Count)
	assert.Equal(t, "+1 (New value: 1)", s.State().History[0].Message)
}
