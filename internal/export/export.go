package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/mnav/internal/nav"
	"github.com/rovshanmuradov/mnav/internal/types"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json", case-insensitively
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Record is one completed run in machine-readable form
type Record struct {
	Timestamp         time.Time   `json:"timestamp"`
	Ticker            string      `json:"ticker"`
	Asset             string      `json:"asset"`
	StockPrice        types.Field `json:"stock_price"`
	SharesOutstanding types.Field `json:"shares_outstanding"`
	CryptoPrice       types.Field `json:"crypto_price"`
	Holdings          types.Field `json:"holdings"`
	TreasuryValue     float64     `json:"treasury_value"`
	NavPerShare       float64     `json:"nav_per_share"`
	MNAVRatio         float64     `json:"mnav_ratio"`
	PremiumPct        float64     `json:"premium_pct"`
	Signal            nav.Signal  `json:"signal"`
}

// NewRecord flattens a run's inputs and valuation
func NewRecord(at time.Time, ticker, asset string, snap types.MarketSnapshot, holdings types.Field, r nav.Report) Record {
	return Record{
		Timestamp:         at.UTC(),
		Ticker:            ticker,
		Asset:             asset,
		StockPrice:        snap.StockPrice,
		SharesOutstanding: snap.SharesOutstanding,
		CryptoPrice:       snap.CryptoPrice,
		Holdings:          holdings,
		TreasuryValue:     r.TreasuryValue,
		NavPerShare:       r.NavPerShare,
		MNAVRatio:         r.MNAVRatio,
		PremiumPct:        r.PremiumPct,
		Signal:            r.Signal,
	}
}

// CSVHeaders returns the column names of the CSV export
func CSVHeaders() []string {
	return []string{
		"timestamp", "ticker", "asset",
		"stock_price", "stock_price_source",
		"shares_outstanding", "shares_outstanding_source",
		"crypto_price", "crypto_price_source",
		"holdings", "holdings_source",
		"treasury_value", "nav_per_share", "mnav_ratio", "premium_pct", "signal",
	}
}

// ToCSV converts the record to a CSV row matching CSVHeaders
func (r Record) ToCSV() []string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		r.Timestamp.Format(time.RFC3339),
		r.Ticker,
		r.Asset,
		num(r.StockPrice.Value), string(r.StockPrice.Source),
		num(r.SharesOutstanding.Value), string(r.SharesOutstanding.Source),
		num(r.CryptoPrice.Value), string(r.CryptoPrice.Source),
		num(r.Holdings.Value), string(r.Holdings.Source),
		num(r.TreasuryValue),
		num(r.NavPerShare),
		num(r.MNAVRatio),
		num(r.PremiumPct),
		string(r.Signal),
	}
}

// RunExporter writes the result of the current run to a single file.
// Every run replaces the file; nothing from earlier runs is kept.
type RunExporter struct {
	path   string
	format Format
	logger *zap.Logger
}

// NewRunExporter creates an exporter for path
func NewRunExporter(path string, format Format, logger *zap.Logger) *RunExporter {
	return &RunExporter{
		path:   path,
		format: format,
		logger: logger.Named("export"),
	}
}

// Write replaces the export file with rec. CSV output is a header row and
// one record; JSON output is one indented object. The file is written to a
// temporary name and renamed, so readers never see a partial export.
func (e *RunExporter) Write(rec Record) error {
	var buf bytes.Buffer
	switch e.format {
	case FormatCSV:
		if err := writeCSV(&buf, rec); err != nil {
			return err
		}
	case FormatJSON:
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", e.format)
	}

	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(e.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		return fmt.Errorf("failed to replace export file: %w", err)
	}

	e.logger.Debug("Run exported",
		zap.String("file", e.path),
		zap.String("format", string(e.format)),
		zap.Float64("mnav_ratio", rec.MNAVRatio))
	return nil
}

func writeCSV(w io.Writer, rec Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := writer.Write(rec.ToCSV()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	writer.Flush()
	return writer.Error()
}
