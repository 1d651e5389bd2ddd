package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/jsonupnp/internal/server"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleList() *server.DeviceList {
	return &server.DeviceList{
		Devices: []server.DeviceView{{
			UUID:       "nas-1",
			Location:   "http://192.168.1.40:8080/desc.xml",
			DeviceType: "urn:schemas-upnp-org:device:MediaServer:1",
			Addr:       "192.168.1.40:1900",
			LastSeenAt: now.Add(-90 * time.Second).Format(time.RFC3339),
		}},
		Count: 1,
	}
}

func TestShortType(t *testing.T) {
	tests := map[string]string{
		"urn:schemas-upnp-org:device:MediaServer:1":      "MediaServer:1",
		"urn:schemas-upnp-org:service:ContentDirectory:1": "ContentDirectory:1",
		"upnp:rootdevice": "upnp:rootdevice",
		"":                "",
	}
	for in, want := range tests {
		if got := ShortType(in); got != want {
			t.Errorf("ShortType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSince(t *testing.T) {
	tests := []struct {
		stamp string
		want  string
	}{
		{now.Add(-42 * time.Second).Format(time.RFC3339), "42s ago"},
		{now.Add(-3 * time.Minute).Format(time.RFC3339), "3m ago"},
		{now.Add(-(2*time.Hour + 5*time.Minute)).Format(time.RFC3339), "2h05m ago"},
		{now.Add(time.Minute).Format(time.RFC3339), "just now"},
		{"garbage", "-"},
	}
	for _, tt := range tests {
		if got := Since(tt.stamp, now); got != tt.want {
			t.Errorf("Since(%q) = %q, want %q", tt.stamp, got, tt.want)
		}
	}
}

func TestDeviceTable_Render(t *testing.T) {
	out := DeviceTable(sampleList(), now, 140).Render()

	for _, want := range []string{"UUID", "LOCATION", "nas-1", "MediaServer:1", "192.168.1.40:1900", "1m ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines != 2 {
		t.Errorf("table has %d lines, want 2", lines)
	}
}

func TestDeviceTable_NilList(t *testing.T) {
	out := DeviceTable(nil, now, 80).Render()
	if !strings.Contains(out, "UUID") || strings.Contains(out, "\n") {
		t.Errorf("empty table should be the header only: %q", out)
	}
}

func TestTable_ShrinksToWidth(t *testing.T) {
	tbl := NewTable("A", "B")
	tbl.Width = 40
	tbl.AddRow("short", strings.Repeat("x", 200))

	widths := tbl.columnWidths()
	if total := widths[0] + widths[1] + 2 + DefaultPadding; total > 40 {
		t.Errorf("table width %d exceeds 40", total)
	}
	if !strings.Contains(tbl.Render(), "…") {
		t.Error("long cell should be truncated with an ellipsis")
	}
}

func TestHeader_RenderKeepsParamOrder(t *testing.T) {
	out := NewHeader("Devices", "jsonupnp-cli devices",
		Param{Key: "Proxy", Value: "http://192.168.1.5:5030"},
		Param{Key: "Format", Value: "table"},
	).SetWidth(80).Render()

	if !strings.Contains(out, "DEVICES") {
		t.Error("title should be uppercased")
	}
	if strings.Index(out, "Proxy") > strings.Index(out, "Format") {
		t.Error("params rendered out of order")
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.PrintSuccess("Converted", Param{Key: "Location", Value: "http://x/desc.xml"})
	p.PrintError("Lookup failed", errors.New("proxy unreachable"), "Check the proxy is running")

	out := buf.String()
	for _, want := range []string{"Converted", "http://x/desc.xml", "Lookup failed", "proxy unreachable", "Check the proxy is running"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestWatchModel_Flow(t *testing.T) {
	calls := 0
	fetch := func(context.Context) (*server.DeviceList, error) {
		calls++
		return sampleList(), nil
	}
	m := NewWatchModel("Watching", fetch, time.Second)

	cmd := m.load()
	msg := cmd()
	if calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls)
	}

	updated, next := m.Update(msg)
	m = updated.(WatchModel)
	if next == nil {
		t.Error("a refresh should schedule the next tick")
	}
	if m.Devices() == nil || m.Devices().Count != 1 {
		t.Fatalf("Devices() = %+v", m.Devices())
	}
	if !strings.Contains(m.View(), "nas-1") {
		t.Error("view should list the device")
	}

	// A failed refresh keeps the last good listing
	updated, _ = m.Update(devicesMsg{err: errors.New("boom"), at: now})
	m = updated.(WatchModel)
	if m.Devices() == nil {
		t.Error("failed refresh dropped the listing")
	}
	if !strings.Contains(m.View(), "boom") {
		t.Error("view should show the error")
	}

	updated, quit := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = updated.(WatchModel)
	if quit == nil || m.View() != "" {
		t.Error("q should quit and clear the view")
	}
}
