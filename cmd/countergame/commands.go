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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/countergame/services/counter"
	"github.com/AleutianAI/countergame/services/counter/tui"
)

// errNotInteractive is returned by huhConfirm when stdin is not a terminal.
var errNotInteractive = errors.New("stdin is not a terminal")

// confirmFunc asks the user a yes/no question on in.
type confirmFunc func(in io.Reader, title string) (bool, error)

// huhConfirm asks with a huh confirm field. It refuses to prompt when in is
// not a terminal.
func huhConfirm(in io.Reader, title string) (bool, error) {
	if !isTerminal(in) {
		return false, errNotInteractive
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Reset").
		Negative("Cancel").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newRootCmd builds the command tree.
//
// # Inputs
//
//   - gatherer: Metrics source for --metrics.
//   - confirm: Asks before destructive commands.
func newRootCmd(gatherer prometheus.Gatherer, confirm confirmFunc) *cobra.Command {
	var opts appOptions

	// withApp loads config, opens the session, runs fn and closes everything.
	withApp := func(cmd *cobra.Command, quiet bool, fn func(a *app) error) error {
		cfg, err := resolveConfig(opts, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, quiet)
		if err != nil {
			return err
		}
		runErr := fn(a)
		return errors.Join(runErr, a.Close())
	}

	rootCmd := &cobra.Command{
		Use:   "countergame",
		Short: "A step counter with undo and a persistent change history",
		Long: `countergame keeps a counter that moves by a chosen step, records every
change, supports undo and reset, and remembers its history between runs.

Run without arguments for the interactive widget. When stdin is not a
terminal, commands are read one per line: "+ 5", "- 2", "undo", "reset",
"history", "quit".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout())
			return withApp(cmd, interactive, func(a *app) error {
				if !interactive {
					return runLines(cmd.Context(), a.session, cmd.InOrStdin(), cmd.OutOrStdout())
				}
				model := tui.NewModel(cmd.Context(), a.session, tui.Config{
					DefaultStep: a.cfg.UI.DefaultStep,
					HistoryRows: a.cfg.UI.HistoryRows,
				})
				_, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
				if errors.Is(err, tea.ErrProgramKilled) {
					return nil
				}
				return err
			})
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.metrics {
				return nil
			}
			return writeMetricsSummary(cmd.ErrOrStderr(), gatherer)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default ~/.countergame/config.yaml)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Directory for the on-disk history store")
	flags.BoolVar(&opts.inMemory, "in-memory", false, "Keep history in memory only for this run")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.traceFile, "trace-file", "", "Append storage spans as JSON to this file")
	flags.BoolVar(&opts.metrics, "metrics", false, "Print counter metrics on exit")

	// --- History ---
	var historyJSON, historyClear bool
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the current count and change history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				if historyClear {
					if err := a.repo.Clear(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed stored history key %q.\n", a.repo.Key())
					return nil
				}
				state := a.session.State()
				if historyJSON {
					return writeHistoryJSON(cmd.OutOrStdout(), state)
				}
				printHistory(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print as JSON")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete the stored history key, including unreadable data")
	historyCmd.MarkFlagsMutuallyExclusive("json", "clear")

	// --- Apply ---
	applyCmd := &cobra.Command{
		Use:   "apply <increment|decrement|reset|undo> [step]",
		Short: "Apply one action and print the new count",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := actionFromArgs(args)
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(a *app) error {
				state, err := a.session.Dispatch(cmd.Context(), action)
				fmt.Fprintf(cmd.OutOrStdout(), "Counter: %d\n", state.Count)
				return err
			})
		},
	}

	// --- Reset ---
	var resetYes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Set the counter to 0 and clear its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !resetYes {
				if confirm == nil {
					return errors.New("refusing to reset without --yes")
				}
				ok, err := confirm(cmd.InOrStdin(), "Reset the counter and clear its history?")
				if errors.Is(err, errNotInteractive) {
					return fmt.Errorf("refusing to reset without --yes: %w", err)
				}
				if err != nil {
					return fmt.Errorf("confirmation failed: %w", err)
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled.")
					return nil
				}
			}
			return withApp(cmd, false, func(a *app) error {
				state, err := a.session.Dispatch(cmd.Context(), counter.Reset())
				fmt.Fprintf(cmd.OutOrStdout(), "Counter: %d\n", state.Count)
				return err
			})
		},
	}
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(historyCmd, applyCmd, resetCmd)
	return rootCmd
}

// actionFromArgs converts "apply" arguments to an action.
func actionFromArgs(args []string) (counter.Action, error) {
	kind := counter.ParseActionKind(args[0])
	step := ""
	if len(args) > 1 {
		step = args[1]
	}
	switch kind {
	case counter.ActionIncrement:
		return counter.Increment(counter.ParseStep(step)), nil
	case counter.ActionDecrement:
		return counter.Decrement(counter.ParseStep(step)), nil
	case counter.ActionReset:
		return counter.Reset(), nil
	case counter.ActionUndo:
		return counter.Undo(), nil
	default:
		return counter.Action{}, fmt.Errorf("unknown action %q (want increment, decrement, reset or undo)", args[0])
	}
}

// historyDocument is the --json output of the history command.
type historyDocument struct {
	Count   int                    `json:"count"`
	History []counter.ChangeRecord `json:"history"`
}

func writeHistoryJSON(w io.Writer, state counter.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(historyDocument{Count: state.Count, History: state.History})
}
