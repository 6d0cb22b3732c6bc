package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is a left-aligned text table. Cells may carry ANSI styling; widths
// are measured on the visible text.
type Table struct {
	Header []string
	Rows   [][]string
	// MaxWidth truncates the last column so lines fit; 0 disables.
	MaxWidth int
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table with two spaces between columns.
func (t *Table) Render(w io.Writer) error {
	cols := len(t.Header)
	for _, r := range t.Rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return nil
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	measure(t.Header)
	for _, r := range t.Rows {
		measure(r)
	}

	if len(t.Header) > 0 {
		header := make([]string, len(t.Header))
		for i, h := range t.Header {
			header[i] = BoldStyle.Render(h)
		}
		if err := t.writeRow(w, header, widths); err != nil {
			return err
		}
	}
	for _, r := range t.Rows {
		if err := t.writeRow(w, r, widths); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) writeRow(w io.Writer, row []string, widths []int) error {
	var b strings.Builder
	for i, cell := range row {
		last := i == len(row)-1
		if last && t.MaxWidth > 0 {
			room := t.MaxWidth - lipgloss.Width(b.String())
			cell = truncate(cell, room)
		}
		b.WriteString(cell)
		if !last {
			b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
		}
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	return err
}

// truncate shortens plain text to n visible runes, marking the cut with "…".
// Styled text is returned unchanged.
func truncate(s string, n int) string {
	if n <= 0 || lipgloss.Width(s) <= n || strings.Contains(s, "\x1b[") {
		return s
	}
	r := []rune(s)
	if n == 1 || len(r) <= n {
		return string(r[:min(n, len(r))])
	}
	return string(r[:n-1]) + "…"
}
