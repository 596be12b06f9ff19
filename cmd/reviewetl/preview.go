package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"reviewetl/internal/table"
)

// maxCellWidth truncates long values such as review text.
const maxCellWidth = 40

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	footStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

// renderPreview draws the first limit rows of t as an aligned box.
func renderPreview(title string, t *table.Table, limit int) string {
	n := min(limit, t.Len())
	cells := make([][]string, 0, n+1)
	cells = append(cells, t.Names())
	for i := 0; i < n; i++ {
		row := make([]string, t.Width())
		for j, v := range t.Row(i) {
			row[j] = runewidth.Truncate(table.Format(v), maxCellWidth, "…")
		}
		cells = append(cells, row)
	}

	widths := make([]int, t.Width())
	for _, row := range cells {
		for j, c := range row {
			widths[j] = max(widths[j], runewidth.StringWidth(c))
		}
	}

	lines := make([]string, 0, len(cells)+1)
	for i, row := range cells {
		line := padRow(row, widths)
		if i == 0 {
			lines = append(lines, headerStyle.Render(line))
			lines = append(lines, strings.Repeat("─", runewidth.StringWidth(line)))
			continue
		}
		lines = append(lines, line)
	}

	foot := fmt.Sprintf("%d of %d rows", n, t.Len())
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		boxStyle.Render(strings.Join(lines, "\n")),
		footStyle.Render(foot),
	)
}

// padRow pads every cell to its column width by display width, so wide
// runes stay aligned.
func padRow(row []string, widths []int) string {
	var sb strings.Builder
	for j, c := range row {
		if j > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(runewidth.FillRight(c, widths[j]))
	}
	return strings.TrimRight(sb.String(), " ")
}
