// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the intervalcheck CLI.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style

	Box      lipgloss.Style
	ErrorBox lipgloss.Style

	TableBorder lipgloss.Style
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Key:     lipgloss.NewStyle().Foreground(ColorTealPrimary),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),

	TableBorder: lipgloss.NewStyle().Foreground(ColorTealDeep),
	TableHeader: lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright).Padding(0, 1),
	TableCell:   lipgloss.NewStyle().Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// =============================================================================
// Printer
// =============================================================================

// Printer writes styled output for one personality level.
//
// Machine output is line oriented: "OK: ", "WARN: " and "ERROR: " prefixes,
// tab separated tables and key=value pairs.
type Printer struct {
	out   io.Writer
	err   io.Writer
	level PersonalityLevel
}

// NewPrinter creates a Printer writing results to out and diagnostics to
// errOut.
func NewPrinter(out, errOut io.Writer, level PersonalityLevel) *Printer {
	return &Printer{out: out, err: errOut, level: level}
}

// Level returns the personality level of the printer.
func (p *Printer) Level() PersonalityLevel { return p.level }

// Out returns the result writer.
func (p *Printer) Out() io.Writer { return p.out }

// Title prints a styled title; machine output omits it.
func (p *Printer) Title(text string) {
	if p.level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.out, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.out, "%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Fprintf(p.out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.err, "WARN: %s\n", text)
	default:
		fmt.Fprintf(p.err, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func (p *Printer) Error(text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.err, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.err, "%s %s\n", IconError.Render(), text)
	default:
		fmt.Fprintln(p.err, Styles.ErrorBox.Render(IconError.Render()+" "+text))
	}
}

// KeyValues prints ordered pairs, one per line.
func (p *Printer) KeyValues(pairs [][2]string) {
	if p.level == PersonalityMachine {
		for _, kv := range pairs {
			fmt.Fprintf(p.out, "%s=%s\n", kv[0], kv[1])
		}
		return
	}
	width := 0
	for _, kv := range pairs {
		width = max(width, len(kv[0]))
	}
	var b strings.Builder
	for i, kv := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Styles.Key.Render(fmt.Sprintf("%-*s", width, kv[0])))
		b.WriteString("  ")
		b.WriteString(kv[1])
	}
	if p.level == PersonalityFull {
		fmt.Fprintln(p.out, Styles.Box.Render(b.String()))
		return
	}
	fmt.Fprintln(p.out, b.String())
}

// Table prints rows under headers. Machine output is tab separated with a
// header line.
func (p *Printer) Table(headers []string, rows [][]string) {
	if p.level == PersonalityMachine {
		fmt.Fprintln(p.out, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(p.out, strings.Join(row, "\t"))
		}
		return
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		Border(lipgloss.NormalBorder()).
		BorderStyle(Styles.TableBorder).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return Styles.TableHeader
			}
			return Styles.TableCell
		})
	if p.level == PersonalityMinimal {
		t = t.Border(lipgloss.HiddenBorder())
	}
	fmt.Fprintln(p.out, t.Render())
}
