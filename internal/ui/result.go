package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Result is a success or failure box
type Result struct {
	Success         bool
	Title           string
	Details         []Param
	Error           error
	Troubleshooting []string
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Param) *Result {
	return &Result{Success: true, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting ...string) *Result {
	return &Result{Title: title, Error: err, Troubleshooting: troubleshooting, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var lines []string
	if r.Success {
		lines = append(lines, SuccessTitleStyle.Render(SuccessMarker+" "+r.Title))
	} else {
		lines = append(lines, ErrorTitleStyle.Render(FailureMarker+" "+r.Title))
	}

	if len(r.Details) > 0 {
		lines = append(lines, "")
		for _, d := range r.Details {
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
				ResultKeyStyle.Render(d.Key),
				ResultValueStyle.Render(d.Value),
			))
		}
	}

	if r.Error != nil {
		lines = append(lines, "", ErrorMessageStyle.Render(r.Error.Error()))
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, "")
		for _, tip := range r.Troubleshooting {
			lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
		}
	}

	content := strings.Join(lines, "\n")
	if r.Success {
		return SuccessBoxStyle(width).Render(content)
	}
	return ErrorBoxStyle(width).Render(content)
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
