package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Cell is a table cell with an optional color. Widths are computed from
// Text, so colored cells still line up.
type Cell struct {
	Text string
	Attr []color.Attribute
}

// Table buffers rows and writes them column-aligned on Render
type Table struct {
	w       io.Writer
	titles  []string
	right   map[int]bool
	rows    [][]Cell
	noColor bool
}

// NewTable creates a table with one column per title
func NewTable(w io.Writer, noColor bool, titles ...string) *Table {
	return &Table{w: w, titles: titles, right: make(map[int]bool), noColor: noColor}
}

// AlignRight right-aligns the given columns, typically sizes and counts
func (t *Table) AlignRight(columns ...int) *Table {
	for _, c := range columns {
		t.right[c] = true
	}
	return t
}

// AddRow adds a row of plain cells
func (t *Table) AddRow(cells ...string) {
	row := make([]Cell, len(cells))
	for i, text := range cells {
		row[i] = Cell{Text: text}
	}
	t.rows = append(t.rows, row)
}

// AddCells adds a row of possibly colored cells
func (t *Table) AddCells(cells ...Cell) {
	t.rows = append(t.rows, cells)
}

// Render writes the header, a rule and every row. Extra cells beyond the
// titles are dropped. The last column is not padded.
func (t *Table) Render() {
	if len(t.titles) == 0 {
		return
	}

	widths := make([]int, len(t.titles))
	for i, title := range t.titles {
		widths[i] = width(title)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) && width(c.Text) > widths[i] {
				widths[i] = width(c.Text)
			}
		}
	}

	header := make([]Cell, len(t.titles))
	rule := make([]Cell, len(t.titles))
	for i, title := range t.titles {
		header[i] = Cell{Text: title, Attr: []color.Attribute{color.Bold, color.FgCyan}}
		rule[i] = Cell{Text: strings.Repeat("─", widths[i]), Attr: []color.Attribute{color.FgHiBlack}}
	}

	t.line(header, widths)
	t.line(rule, widths)
	for _, row := range t.rows {
		t.line(row, widths)
	}
}

func (t *Table) line(row []Cell, widths []int) {
	n := min(len(row), len(widths))
	for i := 0; i < n; i++ {
		c := row[i]
		gap := widths[i] - width(c.Text)
		last := i == n-1

		if t.right[i] {
			fmt.Fprint(t.w, strings.Repeat(" ", gap))
		}
		paint(c.Attr, t.noColor).Fprint(t.w, c.Text)
		if !t.right[i] && !last {
			fmt.Fprint(t.w, strings.Repeat(" ", gap))
		}
		if !last {
			fmt.Fprint(t.w, "  ")
		}
	}
	fmt.Fprintln(t.w)
}

// Field is one line of a Fields block
type Field struct {
	Key   string
	Value string
}

// Fields writes "Key: value" lines with values aligned
func Fields(w io.Writer, noColor bool, fields ...Field) {
	keyWidth := 0
	for _, f := range fields {
		keyWidth = max(keyWidth, width(f.Key)+1)
	}
	cyan := paint([]color.Attribute{color.FgCyan}, noColor)
	for _, f := range fields {
		cyan.Fprint(w, f.Key+":")
		fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", keyWidth-width(f.Key)-1), f.Value)
	}
}

// Bullets writes one "• item" line per item
func Bullets(w io.Writer, noColor bool, items ...string) {
	marker := paint([]color.Attribute{color.FgCyan}, noColor)
	for _, item := range items {
		marker.Fprint(w, "• ")
		fmt.Fprintln(w, item)
	}
}

// Numbered writes "1. item" lines with the numbers right-aligned
func Numbered(w io.Writer, noColor bool, items ...string) {
	marker := paint([]color.Attribute{color.FgCyan}, noColor)
	digits := len(fmt.Sprint(len(items)))
	for i, item := range items {
		marker.Fprintf(w, "%*d. ", digits, i+1)
		fmt.Fprintln(w, item)
	}
}

// Heading writes a bold title underlined to its width
func Heading(w io.Writer, title string, noColor bool) {
	paint([]color.Attribute{color.Bold, color.FgCyan}, noColor).Fprintln(w, title)
	paint([]color.Attribute{color.FgHiBlack}, noColor).Fprintln(w, strings.Repeat("─", width(title)))
}

func paint(attrs []color.Attribute, noColor bool) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// width counts runes, so "→" and "─" take one column
func width(s string) int {
	return utf8.RuneCountInString(s)
}
