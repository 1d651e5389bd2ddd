package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/muurk/jsonupnp/internal/server"
)

// Table is a plain column layout with styled header and cells
type Table struct {
	Headers []string
	Rows    [][]string
	Width   int

	// Muted lists column indexes rendered with the secondary style
	Muted map[int]bool
}

// NewTable creates a table sized for the terminal
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers, Width: GetTerminalWidth(), Muted: map[int]bool{}}
}

// AddRow appends a row; missing cells render empty
func (t *Table) AddRow(cells ...string) *Table {
	t.Rows = append(t.Rows, cells)
	return t
}

// columnWidths sizes each column to its widest cell, shrinking the widest
// column until the table fits Width
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	if t.Width <= 0 {
		return widths
	}
	gaps := 2 * (len(widths) - 1)
	for {
		total := gaps + DefaultPadding
		widest := 0
		for i, w := range widths {
			total += w
			if w > widths[widest] {
				widest = i
			}
		}
		if total <= t.Width || widths[widest] <= 8 {
			return widths
		}
		widths[widest]--
	}
}

// Render returns the table as a string
func (t *Table) Render() string {
	if len(t.Headers) == 0 {
		return ""
	}
	widths := t.columnWidths()

	line := func(cells []string, style func(int) lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			cell = runewidth.Truncate(cell, w, "…")
			parts[i] = style(i).Render(runewidth.FillRight(cell, w))
		}
		return strings.Repeat(" ", DefaultPadding) + strings.Join(parts, "  ")
	}

	lines := []string{line(t.Headers, func(int) lipgloss.Style { return TableHeaderStyle })}
	for _, row := range t.Rows {
		lines = append(lines, line(row, func(i int) lipgloss.Style {
			if t.Muted[i] {
				return TableMutedCellStyle
			}
			return TableCellStyle
		}))
	}
	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer
func (t *Table) String() string {
	return t.Render()
}

// DeviceTable renders a registry listing. Ages are relative to now.
func DeviceTable(list *server.DeviceList, now time.Time, width int) *Table {
	t := NewTable("UUID", "TYPE", "ADDRESS", "LAST SEEN", "LOCATION")
	t.Width = width
	t.Muted[3] = true
	t.Muted[4] = true

	if list == nil {
		return t
	}
	for _, d := range list.Devices {
		t.AddRow(d.UUID, ShortType(d.DeviceType), d.Addr, Since(d.LastSeenAt, now), d.Location)
	}
	return t
}

// ShortType strips the urn prefix of a device type
// ("urn:schemas-upnp-org:device:MediaServer:1" yields "MediaServer:1")
func ShortType(deviceType string) string {
	if i := strings.Index(deviceType, ":device:"); i >= 0 {
		return deviceType[i+len(":device:"):]
	}
	if i := strings.Index(deviceType, ":service:"); i >= 0 {
		return deviceType[i+len(":service:"):]
	}
	return deviceType
}

// Since formats the age of an RFC 3339 timestamp ("42s ago", "3m ago")
func Since(stamp string, now time.Time) string {
	ts, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return "-"
	}
	age := now.Sub(ts)
	switch {
	case age < 0:
		return "just now"
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm ago", int(age.Hours()), int(age.Minutes())%60)
	}
}
