// internal/report/printer.go
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/mnav/internal/nav"
	"github.com/rovshanmuradov/mnav/internal/types"
)

const bannerWidth = 50

// Meta names what the report is about
type Meta struct {
	Ticker  string
	Company string
	Symbol  string
}

// Printer renders the mNAV report. Styling follows the terminal behind the
// writer given to NewPrinter, so redirected output carries no escape codes.
type Printer struct {
	meta   Meta
	styles Styles
	plain  bool
}

type Option func(*Printer)

// WithPlain disables all styling
func WithPlain() Option {
	return func(p *Printer) { p.plain = true }
}

func NewPrinter(out io.Writer, meta Meta, opts ...Option) *Printer {
	p := &Printer{
		meta:   meta,
		styles: NewStyles(lipgloss.NewRenderer(out)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Render formats the inputs and the valuation as report text
func (p *Printer) Render(snap types.MarketSnapshot, holdings types.Field, r nav.Report) string {
	var sb strings.Builder
	heavy := strings.Repeat("=", bannerWidth)
	light := strings.Repeat("-", bannerWidth)

	title := fmt.Sprintf(" [%s] %s Real-Time mNAV Engine", p.meta.Ticker, p.meta.Company)

	sb.WriteString(p.style(p.styles.Banner, heavy) + "\n")
	sb.WriteString(p.style(p.styles.Title, title) + "\n")
	sb.WriteString(p.style(p.styles.Banner, heavy) + "\n")

	p.row(&sb, "Shares Outstanding", FormatCount(snap.SharesOutstanding.Value), &snap.SharesOutstanding)
	p.row(&sb, "Treasury Assets", FormatCount(holdings.Value)+" "+p.meta.Symbol, &holdings)
	p.row(&sb, p.meta.Symbol+" Price", FormatMoney(snap.CryptoPrice.Value), &snap.CryptoPrice)
	p.row(&sb, "Treasury Value", FormatMoney(r.TreasuryValue), nil)

	sb.WriteString(p.style(p.styles.Banner, light) + "\n")

	p.row(&sb, p.meta.Ticker+" Stock Price", FormatMoney(snap.StockPrice.Value), &snap.StockPrice)
	p.row(&sb, "NAV per Share", FormatMoney(r.NavPerShare), nil)
	p.row(&sb, "mNAV Ratio", fmt.Sprintf("%sx (Premium: %s%%)", FormatFixed(r.MNAVRatio), FormatFixed(r.PremiumPct)), nil)

	signal := fmt.Sprintf("%s (%s)", r.Signal.Action(), describe(r.Signal))
	p.row(&sb, "Signal", p.style(p.styles.forSignal(r.Signal), signal), nil)

	sb.WriteString(p.style(p.styles.Banner, heavy) + "\n")
	return sb.String()
}

// Print writes the rendered report to w
func (p *Printer) Print(w io.Writer, snap types.MarketSnapshot, holdings types.Field, r nav.Report) error {
	_, err := io.WriteString(w, p.Render(snap, holdings, r))
	return err
}

func (p *Printer) row(sb *strings.Builder, label, value string, field *types.Field) {
	line := " " + p.style(p.styles.Label, fmt.Sprintf("%-19s:", label)) + " " + value
	if field != nil {
		tagStyle := p.styles.Live
		if !field.IsLive() {
			tagStyle = p.styles.Fallback
		}
		line += "  " + p.style(tagStyle, "["+string(field.Source)+"]")
	}
	sb.WriteString(line + "\n")
}

func (p *Printer) style(st lipgloss.Style, s string) string {
	if p.plain {
		return s
	}
	return st.Render(s)
}

func describe(s nav.Signal) string {
	switch s {
	case nav.SignalUndervalued:
		return "undervalued, below treasury value"
	case nav.SignalOverbought:
		return "overbought, premium stretched"
	default:
		return "fair value"
	}
}
