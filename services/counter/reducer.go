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
	"math"
	"slices"
	"strconv"
	"strings"
)

// Reduce computes the next state for an action.
//
// # Description
//
// Reduce is pure: it never mutates state and never fails.
//
//   - Increment/Decrement append a ChangeRecord with the signed step.
//   - Reset returns InitialState, discarding history.
//   - Undo pops the last record and restores its PreviousCount; with an
//     empty history it returns state unchanged.
//   - Unknown kinds return state unchanged.
//   - A change that would overflow int returns state unchanged.
//
// # Inputs
//
//   - state: Current state. Not modified.
//   - action: The action to apply.
//
// # Outputs
//
//   - State: The next state. Its History never aliases spare capacity of
//     the input, so appending to one state cannot corrupt another.
func Reduce(state State, action Action) State {
	switch action.Kind {
	case ActionIncrement:
		return applyDelta(state, action.effectiveStep())

	case ActionDecrement:
		return applyDelta(state, -action.effectiveStep())

	case ActionReset:
		return InitialState()

	case ActionUndo:
		n := len(state.History)
		if n == 0 {
			return state
		}
		last := state.History[n-1]
		return State{
			Count:   last.PreviousCount,
			History: slices.Clip(state.History[:n-1]),
		}

	default:
		return state
	}
}

func applyDelta(state State, delta int) State {
	if overflows(state.Count, delta) {
		return state
	}
	history := make([]ChangeRecord, len(state.History), len(state.History)+1)
	copy(history, state.History)
	rec := newChangeRecord(state.Count, delta)
	return State{
		Count:   rec.NewCount(),
		History: append(history, rec),
	}
}

// overflows reports whether count+delta falls outside the int range.
func overflows(count, delta int) bool {
	if delta > 0 {
		return count > math.MaxInt-delta
	}
	return count < math.MinInt-delta
}

// historyChanged reports whether next differs from prev in a way that has
// to be persisted.
func historyChanged(prev, next State) bool {
	if len(prev.History) != len(next.History) {
		return true
	}
	if len(prev.History) == 0 {
		return false
	}
	return prev.History[len(prev.History)-1] != next.History[len(next.History)-1]
}

// ParseStep parses the step input field.
//
// Leading whitespace and an optional sign are followed by the leading
// base-10 digits; anything after them is ignored, so "2.5" is 2 and "3abc"
// is 3. No digits, a value that is not positive, or a value too large for
// int yields 1. No error is reported.
func ParseStep(text string) int {
	s := strings.TrimSpace(text)
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 1
	}
	v, err := strconv.Atoi(sign + s[:end])
	if err != nil || v <= 0 {
		return 1
	}
	return v
}
