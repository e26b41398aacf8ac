// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides the interactive counter widget.
//
// # Description
//
// The widget renders the current count, a step input, four buttons
// (Increment, Decrement, Reset, Undo) and the change history. Every button
// press becomes a counter.Action dispatched to the Session, which persists
// the history.
//
// # Thread Safety
//
// TUI components are designed for single-threaded use within the bubbletea
// event loop. Do not access TUI state from multiple goroutines.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/countergame/pkg/ux"
	"github.com/AleutianAI/countergame/services/counter"
)

// =============================================================================
// Focus
// =============================================================================

// Focus identifies the focused control.
type Focus int

const (
	// FocusInput is the step text field.
	FocusInput Focus = iota

	// FocusIncrement is the Increment button.
	FocusIncrement

	// FocusDecrement is the Decrement button.
	FocusDecrement

	// FocusReset is the Reset button.
	FocusReset

	// FocusUndo is the Undo button.
	FocusUndo

	focusCount
)

var buttonLabels = map[Focus]string{
	FocusIncrement: "Increment",
	FocusDecrement: "Decrement",
	FocusReset:     "Reset",
	FocusUndo:      "Undo",
}

// =============================================================================
// Config
// =============================================================================

// Config configures the counter widget.
type Config struct {
	// DefaultStep is the initial text of the step input.
	DefaultStep string

	// HistoryRows is the maximum number of history lines shown at once.
	// Older lines scroll.
	HistoryRows int
}

// DefaultConfig returns the stock widget settings.
func DefaultConfig() Config {
	return Config{
		DefaultStep: "1",
		HistoryRows: 10,
	}
}

// =============================================================================
// Model
// =============================================================================

// Model is the bubbletea model for the counter widget.
type Model struct {
	config  Config
	ctx     context.Context
	session *counter.Session
	state   counter.State

	step    textinput.Model
	history viewport.Model
	help    help.Model
	keys    keyMap
	focus   Focus

	width    int
	status   string
	err      error
	quitting bool
}

// NewModel creates the widget for a session.
//
// # Inputs
//
//   - ctx: Context passed to every Dispatch (storage writes).
//   - session: The opened counter session. Must not be nil.
//   - config: Widget settings. Zero fields fall back to DefaultConfig.
//
// # Outputs
//
//   - Model: Ready-to-use model for tea.NewProgram. Focus starts on the
//     Increment button.
func NewModel(ctx context.Context, session *counter.Session, config Config) Model {
	defaults := DefaultConfig()
	if config.DefaultStep == "" {
		config.DefaultStep = defaults.DefaultStep
	}
	if config.HistoryRows <= 0 {
		config.HistoryRows = defaults.HistoryRows
	}

	ti := textinput.New()
	ti.Prompt = "Step: "
	ti.Placeholder = "value to change"
	ti.CharLimit = 12
	ti.Width = 14
	ti.SetValue(config.DefaultStep)

	m := Model{
		config:  config,
		ctx:     ctx,
		session: session,
		state:   session.State(),
		step:    ti,
		history: viewport.New(40, config.HistoryRows),
		help:    help.New(),
		keys:    defaultKeyMap(),
		focus:   FocusIncrement,
	}
	if session.Recovered() {
		m.status = "Stored history was unreadable; starting fresh."
	}
	m.refreshHistory()
	return m
}

// State returns the state last rendered.
func (m Model) State() counter.State { return m.state }

// Focused returns the focused control.
func (m Model) Focused() Focus { return m.focus }

// StepValue returns the raw text of the step input.
func (m Model) StepValue() string { return m.step.Value() }

// Err returns the last persistence error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		w := msg.Width - 4
		if w < 20 {
			w = 20
		}
		m.history.Width = w
		m.refreshHistory()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focus == FocusInput {
		var cmd tea.Cmd
		m.step, cmd = m.step.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		return m.setFocus((m.focus + 1) % focusCount)
	case key.Matches(msg, m.keys.Prev):
		return m.setFocus((m.focus + focusCount - 1) % focusCount)
	}

	if m.focus == FocusInput {
		switch {
		case msg.Type == tea.KeyEnter:
			m.press(FocusIncrement)
			return m, nil
		case key.Matches(msg, m.keys.Blur):
			return m.setFocus(FocusIncrement)
		}
		var cmd tea.Cmd
		m.step, cmd = m.step.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Press):
		m.press(m.focus)
	case key.Matches(msg, m.keys.Increment):
		m.press(FocusIncrement)
	case key.Matches(msg, m.keys.Decrement):
		m.press(FocusDecrement)
	case key.Matches(msg, m.keys.Reset):
		m.press(FocusReset)
	case key.Matches(msg, m.keys.Undo):
		m.press(FocusUndo)
	case key.Matches(msg, m.keys.ScrollUp):
		m.history.LineUp(1)
	case key.Matches(msg, m.keys.ScrollDn):
		m.history.LineDown(1)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// setFocus moves focus, focusing or blurring the step input as needed.
func (m Model) setFocus(f Focus) (tea.Model, tea.Cmd) {
	m.focus = f
	if f == FocusInput {
		return m, m.step.Focus()
	}
	m.step.Blur()
	return m, nil
}

// press performs the button's action against the session.
func (m *Model) press(button Focus) {
	var action counter.Action
	switch button {
	case FocusIncrement:
		action = counter.Increment(counter.ParseStep(m.step.Value()))
	case FocusDecrement:
		action = counter.Decrement(counter.ParseStep(m.step.Value()))
	case FocusReset:
		action = counter.Reset()
	case FocusUndo:
		action = counter.Undo()
	default:
		return
	}

	state, err := m.session.Dispatch(m.ctx, action)
	m.state = state
	m.err = err
	if err != nil {
		m.status = "Could not save history: " + err.Error()
	} else {
		m.status = ""
	}
	m.refreshHistory()
}

// refreshHistory re-renders the history list and scrolls to the newest entry.
func (m *Model) refreshHistory() {
	rows := len(m.state.History)
	if rows == 0 {
		rows = 1
	}
	if rows > m.config.HistoryRows {
		rows = m.config.HistoryRows
	}
	m.history.Height = rows

	if len(m.state.History) == 0 {
		m.history.SetContent(ux.Styles.Muted.Render("(no changes yet)"))
		return
	}

	lines := make([]string, len(m.state.History))
	for i, r := range m.state.History {
		lines[i] = "• " + ux.DeltaStyle(r.ChangeValue).Render(r.Message)
	}
	m.history.SetContent(strings.Join(lines, "\n"))
	m.history.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(ux.Styles.Title.Render(fmt.Sprintf("Counter: %d", m.state.Count)))
	b.WriteString("\n\n")

	inputStyle := ux.Styles.Input
	if m.focus == FocusInput {
		inputStyle = ux.Styles.InputFocused
	}
	b.WriteString(inputStyle.Render(m.step.View()))
	b.WriteString("\n")

	buttons := make([]string, 0, len(buttonLabels))
	for f := FocusIncrement; f <= FocusUndo; f++ {
		style := ux.Styles.Button
		if m.focus == f {
			style = ux.Styles.ButtonFocused
		}
		buttons = append(buttons, style.Render(buttonLabels[f]))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	b.WriteString("\n\n")

	b.WriteString(ux.Styles.Subtitle.Render("History"))
	b.WriteString("\n")
	b.WriteString(m.history.View())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(ux.Styles.Error.Render(m.status))
		} else {
			b.WriteString(ux.Styles.Muted.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}
