package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/jsonupnp/internal/server"
)

// FetchFunc loads the current registry listing
type FetchFunc func(ctx context.Context) (*server.DeviceList, error)

type devicesMsg struct {
	list *server.DeviceList
	err  error
	at   time.Time
}

type tickMsg time.Time

// WatchModel is a Bubble Tea model that polls a proxy's registry and
// renders it as a live table
type WatchModel struct {
	fetch    FetchFunc
	interval time.Duration
	title    string

	spinner  spinner.Model
	list     *server.DeviceList
	err      error
	updated  time.Time
	loading  bool
	width    int
	quitting bool
}

// NewWatchModel creates a watch view polling fetch every interval
func NewWatchModel(title string, fetch FetchFunc, interval time.Duration) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StatusLineStyle
	return WatchModel{
		fetch:    fetch,
		interval: interval,
		title:    title,
		spinner:  s,
		loading:  true,
		width:    GetTerminalWidth(),
	}
}

func (m WatchModel) load() tea.Cmd {
	fetch := m.fetch
	timeout := m.interval
	if timeout < 5*time.Second {
		timeout = 5 * time.Second
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		list, err := fetch(ctx)
		return devicesMsg{list: list, err: err, at: time.Now()}
	}
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if !m.loading {
				m.loading = true
				return m, m.load()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.width > MaxContentWidth {
			m.width = MaxContentWidth
		}
		return m, nil

	case devicesMsg:
		m.loading = false
		m.updated = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.list = msg.list
		}
		return m, m.tick()

	case tickMsg:
		m.loading = true
		return m, m.load()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderTitleStyle.Render(strings.ToUpper(m.title)))
	b.WriteString("\n\n")

	if m.list != nil {
		b.WriteString(DeviceTable(m.list, time.Now(), m.width).Render())
		b.WriteString("\n\n")
	}

	status := ""
	switch {
	case m.err != nil:
		status = ErrorMessageStyle.Render(FailureMarker + " " + m.err.Error())
	case m.list != nil:
		status = StatusLineStyle.Render(fmt.Sprintf("%d device(s) · updated %s", m.list.Count, m.updated.Format("15:04:05")))
	}
	if m.loading {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(StatusLineStyle.Render("r refresh · q quit"))
	b.WriteString("\n")
	return b.String()
}

// Devices returns the last successfully fetched listing
func (m WatchModel) Devices() *server.DeviceList {
	return m.list
}

// RunWatch runs the watch view until the user quits
func RunWatch(title string, fetch FetchFunc, interval time.Duration) error {
	_, err := tea.NewProgram(NewWatchModel(title, fetch, interval), tea.WithAltScreen()).Run()
	return err
}
