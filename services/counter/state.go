// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package counter implements the counter widget's state machine.
//
// # Description
//
// The package is split into three parts:
//
//   - State and ChangeRecord: the data held by the widget.
//   - Reduce: a pure function from (State, Action) to a new State.
//   - Session: the state store that owns the current State, rehydrates it
//     from persisted history and writes history back on every change.
//
// # Thread Safety
//
// State values are immutable once returned by Reduce. Session is designed
// for sequential event dispatch (one bubbletea loop or one line reader) and
// is not safe for concurrent Dispatch calls.
package counter

import (
	"fmt"
	"slices"
)

// =============================================================================
// Change Records
// =============================================================================

// ChangeRecord captures one state transition.
//
// Records are immutable once appended to a history. The JSON field names
// are the persisted storage format.
type ChangeRecord struct {
	// PreviousCount is the count before the change was applied.
	PreviousCount int `json:"previousCount"`

	// ChangeValue is the signed delta applied to PreviousCount.
	ChangeValue int `json:"changeValue"`

	// Message is the display string, e.g. "+5 (New value: 5)".
	Message string `json:"message"`
}

// NewCount returns the count this record produced.
func (r ChangeRecord) NewCount() int {
	return r.PreviousCount + r.ChangeValue
}

// newChangeRecord builds the record for a signed delta applied to prev.
func newChangeRecord(prev, delta int) ChangeRecord {
	next := prev + delta
	var msg string
	if delta < 0 {
		msg = fmt.Sprintf("-%d (New value: %d)", -delta, next)
	} else {
		msg = fmt.Sprintf("+%d (New value: %d)", delta, next)
	}
	return ChangeRecord{
		PreviousCount: prev,
		ChangeValue:   delta,
		Message:       msg,
	}
}

// =============================================================================
// State
// =============================================================================

// State is the counter's full state.
//
// Count always equals the initial count plus the sum of every ChangeValue
// in History.
type State struct {
	Count   int
	History []ChangeRecord
}

// InitialState returns the empty state {0, []}.
func InitialState() State {
	return State{Count: 0, History: []ChangeRecord{}}
}

// Rehydrate reconstructs a State from persisted history.
//
// # Description
//
// An empty (or nil) history yields InitialState. Otherwise the count is
// derived from the last record as PreviousCount + ChangeValue, which is the
// only way the count is ever recovered: storage never holds it directly.
//
// # Inputs
//
//   - history: Records in the order they were appended.
//
// # Outputs
//
//   - State: The rehydrated state. History is a private copy.
func Rehydrate(history []ChangeRecord) State {
	if len(history) == 0 {
		return InitialState()
	}
	last := history[len(history)-1]
	return State{
		Count:   last.NewCount(),
		History: slices.Clone(history),
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	h := slices.Clone(s.History)
	if h == nil {
		h = []ChangeRecord{}
	}
	return State{Count: s.Count, History: h}
}

// Messages returns the display message of every record, in order.
func (s State) Messages() []string {
	out := make([]string, len(s.History))
	for i, r := range s.History {
		out[i] = r.Message
	}
	return out
}

// Equal reports whether two states have the same count and history.
func (s State) Equal(other State) bool {
	return s.Count == other.Count && slices.Equal(s.History, other.History)
}
