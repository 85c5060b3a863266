// internal/report/style.go
package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/mnav/internal/nav"
)

var (
	cyan   = lipgloss.Color("#00E5FF") // banner
	yellow = lipgloss.Color("#FFB500") // fallback tags, hold
	green  = lipgloss.Color("#2AFFAA") // live tags, undervalued
	red    = lipgloss.Color("#FF5555") // overbought
	base01 = lipgloss.Color("#6C7280") // muted labels

	buyColor  = green
	sellColor = red
	holdColor = yellow
)

// Styles groups the styles used by the printer, bound to one renderer
type Styles struct {
	Banner   lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Live     lipgloss.Style
	Fallback lipgloss.Style
	Buy      lipgloss.Style
	Sell     lipgloss.Style
	Hold     lipgloss.Style
}

func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Banner:   r.NewStyle().Foreground(cyan),
		Title:    r.NewStyle().Foreground(cyan).Bold(true),
		Label:    r.NewStyle().Foreground(base01),
		Live:     r.NewStyle().Foreground(green),
		Fallback: r.NewStyle().Foreground(yellow).Bold(true),
		Buy:      r.NewStyle().Foreground(buyColor).Bold(true),
		Sell:     r.NewStyle().Foreground(sellColor).Bold(true),
		Hold:     r.NewStyle().Foreground(holdColor).Bold(true),
	}
}

func (s Styles) forSignal(sig nav.Signal) lipgloss.Style {
	switch sig {
	case nav.SignalUndervalued:
		return s.Buy
	case nav.SignalOverbought:
		return s.Sell
	default:
		return s.Hold
	}
}
