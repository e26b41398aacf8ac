// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux holds the shared palette and lipgloss styles used by the
// terminal UI and the plain CLI output.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette - deep ocean teals
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Highlights, focused button
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Headings
	ColorSlate       = lipgloss.Color("#2C4A54") // Muted text
	ColorMidnight    = lipgloss.Color("#0D2F39") // Focused button text

	ColorIncrease = lipgloss.Color("#2CD7C7")
	ColorDecrease = lipgloss.Color("#F4D03F")
	ColorError    = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Increase lipgloss.Style
	Decrease lipgloss.Style

	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	Input         lipgloss.Style
	InputFocused  lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle: lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
	Muted:    lipgloss.NewStyle().Foreground(ColorSlate),
	Error:    lipgloss.NewStyle().Foreground(ColorError),
	Increase: lipgloss.NewStyle().Foreground(ColorIncrease),
	Decrease: lipgloss.NewStyle().Foreground(ColorDecrease),

	Button: lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorSlate),
	ButtonFocused: lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(ColorMidnight).
		Background(ColorTealBright).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorTealBright),
	Input: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorSlate),
	InputFocused: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorTealBright),
}

// DeltaStyle picks the increase or decrease style by the sign of a change.
func DeltaStyle(delta int) lipgloss.Style {
	if delta < 0 {
		return Styles.Decrease
	}
	return Styles.Increase
}

// HistoryLine is the minimal view of a change record the printers need.
type HistoryLine struct {
	Delta   int
	Message string
}

// RenderHistory renders the counter heading and history list as plain
// styled text for non-interactive output.
func RenderHistory(count int, lines []HistoryLine) string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render(fmt.Sprintf("Counter: %d", count)))
	b.WriteString("\n")
	b.WriteString(Styles.Subtitle.Render("History"))
	b.WriteString("\n")
	if len(lines) == 0 {
		b.WriteString(Styles.Muted.Render("  (no changes yet)"))
		b.WriteString("\n")
		return b.String()
	}
	for i, l := range lines {
		fmt.Fprintf(&b, "%3d. %s\n", i+1, DeltaStyle(l.Delta).Render(l.Message))
	}
	return b.String()
}

// PrintError writes a styled error line.
func PrintError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Styles.Error.Render("✗ "+fmt.Sprintf(format, args...)))
}
