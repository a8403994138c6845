// Package render draws decoded forecasts as a text grid: one block per
// mountain, one column per time slot.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
)

// Renderer displays forecasts.
type Renderer interface {
	Render(w io.Writer, forecasts []domain.MountainForecast) error
}

// rowLabels name the grid rows top to bottom. The first three are headers.
var rowLabels = []string{"Day", "Date", "Time", "Sky", "Summary", "Max °C", "Min °C"}

const headerRows = 3

// summaryGlyphs maps the site's summary wording to a symbol for the Sky row.
var summaryGlyphs = map[string]string{
	"clear":       "☀",
	"some clouds": "⛅",
	"cloudy":      "☁",
	"light rain":  "☂",
	"mod. rain":   "☂☂",
	"heavy rain":  "☂☂☂",
	"rain shwrs":  "☔",
	"light snow":  "❄",
	"mod. snow":   "❄❄",
	"heavy snow":  "❄❄❄",
	"snow shwrs":  "☃",
	"risk tstorm": "⚡",
}

// Glyph returns the symbol for a forecast summary, or "" when the wording
// is not one the site uses.
func Glyph(summary string) string {
	return summaryGlyphs[strings.ToLower(strings.TrimSpace(summary))]
}

// Grid renders forecasts with lipgloss styles. Colors are dropped when the
// writer is not a terminal.
type Grid struct {
	// Separator is drawn between columns.
	Separator string
}

// NewGrid returns a Grid with the default column separator.
func NewGrid() *Grid {
	return &Grid{Separator: "|"}
}

// Render writes one table per forecast. Forecasts without records are
// listed with a note instead of an empty table.
func (g *Grid) Render(w io.Writer, forecasts []domain.MountainForecast) error {
	r := lipgloss.NewRenderer(w)
	styles := gridStyles{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		label:  r.NewStyle().Bold(true).Padding(0, 1),
		header: r.NewStyle().Bold(true).Padding(0, 1).Align(lipgloss.Center),
		cell:   r.NewStyle().Padding(0, 1).Align(lipgloss.Center),
		muted:  r.NewStyle().Foreground(lipgloss.Color("241")),
	}

	var sb strings.Builder
	for i, f := range forecasts {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(styles.title.Render(fmt.Sprintf("%s (%s)", f.Mountain, f.Elevation)))
		sb.WriteString("\n")
		if len(f.Records) == 0 {
			sb.WriteString(styles.muted.Render("no forecast"))
			sb.WriteString("\n")
			continue
		}
		g.writeTable(&sb, styles, f.Records)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

type gridStyles struct {
	title, label, header, cell, muted lipgloss.Style
}

func (g *Grid) writeTable(sb *strings.Builder, styles gridStyles, records []domain.TimeSlotRecord) {
	rows := gridRows(records)

	// Column 0 holds the row labels; widths include the one-cell padding.
	widths := make([]int, len(records)+1)
	for _, row := range rows {
		for c, cell := range row {
			widths[c] = max(widths[c], lipgloss.Width(cell)+2)
		}
	}

	sep := styles.muted.Render(g.Separator)
	for ri, row := range rows {
		for c, cell := range row {
			style := styles.cell
			switch {
			case c == 0:
				style = styles.label
			case ri < headerRows:
				style = styles.header
			}
			sb.WriteString(style.Width(widths[c]).Render(cell))
			if c < len(row)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
		if ri == headerRows-1 {
			total := len(widths) - 1
			for _, w := range widths {
				total += w
			}
			sb.WriteString(styles.muted.Render(strings.Repeat("-", total)))
			sb.WriteString("\n")
		}
	}
}

// gridRows lays out records column-wise under the row labels.
func gridRows(records []domain.TimeSlotRecord) [][]string {
	rows := make([][]string, len(rowLabels))
	for i, label := range rowLabels {
		rows[i] = make([]string, 0, len(records)+1)
		rows[i] = append(rows[i], label)
	}
	for _, r := range records {
		rows[0] = append(rows[0], r.DayOfWeek)
		rows[1] = append(rows[1], r.Date.Format("Jan 2"))
		rows[2] = append(rows[2], r.TimeOfDay)
		rows[3] = append(rows[3], Glyph(r.Summary))
		rows[4] = append(rows[4], r.Summary)
		rows[5] = append(rows[5], r.MaxTemperature)
		rows[6] = append(rows[6], r.MinTemperature)
	}
	return rows
}
