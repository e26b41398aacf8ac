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
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/countergame/pkg/ux"
	"github.com/AleutianAI/countergame/services/counter"
)

// =============================================================================
// Line Commands
// =============================================================================

type lineCommandKind int

const (
	lineSkip lineCommandKind = iota
	lineAction
	lineHistory
	lineQuit
)

type lineCommand struct {
	kind   lineCommandKind
	action counter.Action
}

// parseCommandLine turns one input line into a command.
//
// Accepted forms: "+ [n]", "- [n]", "increment [n]", "decrement [n]",
// "reset", "undo", "history", "quit". Blank lines and lines starting with
// # are skipped. A missing or invalid step is 1.
func parseCommandLine(line string) (lineCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return lineCommand{kind: lineSkip}, nil
	}

	word := strings.ToLower(fields[0])
	switch word {
	case "history", "h":
		return lineCommand{kind: lineHistory}, nil
	case "quit", "exit", "q":
		return lineCommand{kind: lineQuit}, nil
	}

	// "+5" and "-5" without a space.
	if len(word) > 1 && (word[0] == '+' || word[0] == '-') {
		fields = append([]string{word[:1], word[1:]}, fields[1:]...)
	}

	action, err := actionFromArgs(fields)
	if err != nil {
		return lineCommand{}, fmt.Errorf("unknown command %q", fields[0])
	}
	return lineCommand{kind: lineAction, action: action}, nil
}

// =============================================================================
// Line Runner
// =============================================================================

// runLines drives a session from line-oriented input, for pipes and
// scripts where the interactive widget cannot run.
//
// Unknown commands and save failures are reported to out and reading
// continues. Reading stops at EOF, "quit", or context cancellation.
func runLines(ctx context.Context, session *counter.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cmd, err := parseCommandLine(scanner.Text())
		if err != nil {
			ux.PrintError(out, "%v", err)
			continue
		}

		switch cmd.kind {
		case lineSkip:
			continue
		case lineQuit:
			return nil
		case lineHistory:
			printHistory(out, session.State())
		case lineAction:
			state, err := session.Dispatch(ctx, cmd.action)
			if err != nil {
				ux.PrintError(out, "could not save history: %v", err)
			}
			fmt.Fprintf(out, "Counter: %d\n", state.Count)
		}
	}

	return scanner.Err()
}

// printHistory writes the count and history list.
func printHistory(out io.Writer, state counter.State) {
	lines := make([]ux.HistoryLine, len(state.History))
	for i, r := range state.History {
		lines[i] = ux.HistoryLine{Delta: r.ChangeValue, Message: r.Message}
	}
	fmt.Fprint(out, ux.RenderHistory(state.Count, lines))
}
