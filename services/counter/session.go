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
	"log/slog"

	"github.com/google/uuid"
)

// ErrCorruptHistory is matched (via errors.Is) by HistoryStore.Load errors
// reporting stored data that could not be decoded.
var ErrCorruptHistory = errors.New("corrupt history")

// HistoryStore is the persistence capability a Session is given.
//
// Load must return a non-nil history alongside an ErrCorruptHistory error
// when the stored data is unreadable, so the session can start fresh.
type HistoryStore interface {
	Load(ctx context.Context) ([]ChangeRecord, error)
	Save(ctx context.Context, history []ChangeRecord) error
}

// =============================================================================
// Session
// =============================================================================

// Session is the counter's state store.
//
// # Description
//
// A Session is opened once, rehydrating its State from the HistoryStore.
// From then on the state only changes through Dispatch, which applies
// Reduce and writes the history back whenever it changed.
//
// # Thread Safety
//
// Not safe for concurrent Dispatch. Events are expected to arrive one at a
// time from a single UI loop.
type Session struct {
	id     string
	store  HistoryStore
	state  State
	logger *slog.Logger

	// recovered is true when Open discarded corrupt stored history.
	recovered bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger. Nil keeps the discard logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// Open rehydrates a session from store.
//
// # Description
//
// Loads the stored history and derives the count from its last record.
// Corrupt stored data is not fatal: the session starts from InitialState,
// a warning is logged, and Recovered reports true. The corrupt value stays
// in storage until the first change overwrites it.
//
// # Inputs
//
//   - ctx: Context for the storage read.
//   - store: The history capability. Must not be nil.
//   - opts: Logger and ID overrides.
//
// # Outputs
//
//   - *Session: Ready to dispatch.
//   - error: Non-nil only for storage failures other than corrupt data.
func Open(ctx context.Context, store HistoryStore, opts ...SessionOption) (*Session, error) {
	if store == nil {
		return nil, errors.New("history store must not be nil")
	}

	s := &Session{
		id:     uuid.NewString(),
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("session_id", s.id))

	history, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptHistory):
		s.recovered = true
		s.state = InitialState()
		rehydrations.WithLabelValues("corrupt").Inc()
		s.logger.Warn("discarding unreadable stored history", slog.String("error", err.Error()))
	case err != nil:
		persistFailures.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("rehydrate session: %w", err)
	default:
		s.state = Rehydrate(history)
		if len(history) == 0 {
			rehydrations.WithLabelValues("empty").Inc()
		} else {
			rehydrations.WithLabelValues("restored").Inc()
		}
		s.logger.Debug("session rehydrated",
			slog.Int("count", s.state.Count),
			slog.Int("history_length", len(s.state.History)))
	}

	observeState(s.state)
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Recovered reports whether Open discarded corrupt stored history.
func (s *Session) Recovered() bool { return s.recovered }

// State returns a copy of the current state.
func (s *Session) State() State {
	return s.state.Clone()
}

// Dispatch applies an action.
//
// # Description
//
// Runs Reduce and, if the history changed, saves the full history. The
// in-memory state advances even when the save fails, matching a UI that
// keeps working while storage is unavailable; the next successful save
// writes the complete list again.
//
// # Inputs
//
//   - ctx: Context for the storage write.
//   - action: The action to apply.
//
// # Outputs
//
//   - State: A copy of the new state.
//   - error: Non-nil if the history could not be persisted.
func (s *Session) Dispatch(ctx context.Context, action Action) (State, error) {
	prev := s.state
	next := Reduce(prev, action)
	s.state = next

	actionsTotal.WithLabelValues(action.Kind.String()).Inc()
	observeState(next)

	if action.Kind == ActionUnknown {
		s.logger.Debug("ignoring unknown action")
		return next.Clone(), nil
	}

	// A reset after discarding corrupt data must overwrite it even though
	// the in-memory history was already empty.
	forceSave := s.recovered && action.Kind == ActionReset
	if !historyChanged(prev, next) && !forceSave {
		s.logger.Debug("action left history unchanged", slog.String("action", action.String()))
		return next.Clone(), nil
	}

	s.logger.Debug("action applied",
		slog.String("action", action.String()),
		slog.Int("count", next.Count),
		slog.Int("history_length", len(next.History)))

	if err := s.store.Save(ctx, next.History); err != nil {
		persistFailures.WithLabelValues("save").Inc()
		s.logger.Error("failed to persist history",
			slog.String("action", action.String()),
			slog.String("error", err.Error()))
		return next.Clone(), fmt.Errorf("persist history after %s: %w", action.Kind, err)
	}
	s.recovered = false
	return next.Clone(), nil
}
