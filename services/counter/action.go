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
	"strconv"
	"strings"
)

// ActionKind identifies an action variant.
type ActionKind int

const (
	// ActionUnknown is never produced by the constructors; Reduce ignores it.
	ActionUnknown ActionKind = iota

	// ActionIncrement adds Step (or 1) to the count.
	ActionIncrement

	// ActionDecrement subtracts Step (or 1) from the count.
	ActionDecrement

	// ActionReset returns to the initial state.
	ActionReset

	// ActionUndo reverts the last change.
	ActionUndo
)

// String returns the lowercase name used in logs, metrics and the CLI.
func (k ActionKind) String() string {
	switch k {
	case ActionIncrement:
		return "increment"
	case ActionDecrement:
		return "decrement"
	case ActionReset:
		return "reset"
	case ActionUndo:
		return "undo"
	default:
		return "unknown"
	}
}

// ParseActionKind maps a command word to an ActionKind.
//
// Accepts the full names plus the short forms "inc", "dec", "+" and "-".
// Matching is case-insensitive. Anything else is ActionUnknown.
func ParseActionKind(word string) ActionKind {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "increment", "inc", "+":
		return ActionIncrement
	case "decrement", "dec", "-":
		return ActionDecrement
	case "reset":
		return ActionReset
	case "undo":
		return ActionUndo
	default:
		return ActionUnknown
	}
}

// Action is one of {Increment(step), Decrement(step), Reset, Undo}.
//
// Step is only meaningful for Increment and Decrement. A zero or negative
// Step means "no payload" and the reducer falls back to 1.
type Action struct {
	Kind ActionKind
	Step int
}

// Increment returns an Increment action.
func Increment(step int) Action { return Action{Kind: ActionIncrement, Step: step} }

// Decrement returns a Decrement action.
func Decrement(step int) Action { return Action{Kind: ActionDecrement, Step: step} }

// Reset returns a Reset action.
func Reset() Action { return Action{Kind: ActionReset} }

// Undo returns an Undo action.
func Undo() Action { return Action{Kind: ActionUndo} }

func (a Action) String() string {
	switch a.Kind {
	case ActionIncrement, ActionDecrement:
		return a.Kind.String() + "(" + strconv.Itoa(a.effectiveStep()) + ")"
	default:
		return a.Kind.String()
	}
}

// effectiveStep applies the positive-or-one rule.
func (a Action) effectiveStep() int {
	if a.Step > 0 {
		return a.Step
	}
	return 1
}
