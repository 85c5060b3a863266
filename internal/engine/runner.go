// internal/engine/runner.go
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/mnav/internal/config"
	"github.com/rovshanmuradov/mnav/internal/export"
	"github.com/rovshanmuradov/mnav/internal/holdings"
	"github.com/rovshanmuradov/mnav/internal/market"
	"github.com/rovshanmuradov/mnav/internal/nav"
	"github.com/rovshanmuradov/mnav/internal/report"
	"github.com/rovshanmuradov/mnav/internal/transport"
	"github.com/rovshanmuradov/mnav/internal/types"
	"github.com/rovshanmuradov/mnav/internal/utils/logger"
	"github.com/rovshanmuradov/mnav/internal/utils/metrics"
)

// MarketFetcher produces the market inputs of a run
type MarketFetcher interface {
	Fetch(ctx context.Context) types.MarketSnapshot
}

// HoldingsFetcher produces the treasury holdings of a run
type HoldingsFetcher interface {
	Fetch(ctx context.Context) types.Field
}

// Result is everything one run produced
type Result struct {
	StartedAt time.Time
	Snapshot  types.MarketSnapshot
	Holdings  types.Field
	Report    nav.Report
}

// Fallbacks lists the sources that did not provide live data
func (r *Result) Fallbacks() []string {
	var out []string
	for _, source := range []string{types.SourceStockPrice, types.SourceShares, types.SourceCryptoPrice} {
		if !r.Snapshot.Fields()[source].IsLive() {
			out = append(out, source)
		}
	}
	if !r.Holdings.IsLive() {
		out = append(out, types.SourceHoldings)
	}
	return out
}

type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	market   MarketFetcher
	holdings HoldingsFetcher
	printer  *report.Printer
	out      io.Writer
	metrics  *metrics.Collector
	exporter *export.RunExporter
	now      func() time.Time
}

// NewRunner wires the live sources on one shared session
func NewRunner(cfg *config.Config, log *zap.Logger, out io.Writer, collector *metrics.Collector) (*Runner, error) {
	identity, err := transport.IdentityByName(cfg.Sources.Identity)
	if err != nil {
		return nil, err
	}

	session, err := transport.NewSession(identity, log, transport.WithRetries(cfg.Sources.Retries))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	extractor, err := holdings.NewExtractor(cfg.Holdings.Anchor, cfg.Asset.Symbol, cfg.Holdings.MaxGap)
	if err != nil {
		return nil, err
	}

	var recorder types.Recorder = types.NopRecorder{}
	if collector != nil {
		recorder = collector
	}

	quotes := market.NewYahooClient(session, cfg.Sources.QuotesURL, cfg.Sources.CookieURL, cfg.Timeouts.Quote, log)
	prices := market.NewCoinGeckoClient(session, cfg.Sources.PriceURL, cfg.Timeouts.Price, log)

	fetcher := market.NewFetcher(quotes, prices, market.Settings{
		Ticker:              cfg.Company.Ticker,
		AssetID:             cfg.Asset.ID,
		VsCurrency:          cfg.Asset.VsCurrency,
		FallbackStockPrice:  cfg.Fallback.StockPrice,
		FallbackShares:      cfg.Fallback.Shares,
		FallbackCryptoPrice: cfg.Fallback.CryptoPrice,
	}, recorder, log)

	scraper := holdings.NewScraper(session, cfg.Sources.PressReleaseURL, cfg.Timeouts.Scrape,
		cfg.Fallback.Holdings, extractor, recorder, log)

	return NewRunnerWith(cfg, log, out, collector, fetcher, scraper), nil
}

// NewRunnerWith builds a runner on caller-supplied sources
func NewRunnerWith(cfg *config.Config, log *zap.Logger, out io.Writer, collector *metrics.Collector,
	marketFetcher MarketFetcher, holdingsFetcher HoldingsFetcher) *Runner {
	var exporter *export.RunExporter
	if cfg.Export.File != "" {
		// format was validated with the config
		format, _ := export.ParseFormat(cfg.Export.Format)
		exporter = export.NewRunExporter(cfg.Export.File, format, log)
	}
	return &Runner{
		cfg:      cfg,
		logger:   log,
		market:   marketFetcher,
		holdings: holdingsFetcher,
		printer: report.NewPrinter(out, report.Meta{
			Ticker:  cfg.Company.Ticker,
			Company: cfg.Company.Name,
			Symbol:  cfg.Asset.Symbol,
		}),
		out:      out,
		metrics:  collector,
		exporter: exporter,
		now:      time.Now,
	}
}

// Run fetches every input, computes the valuation and prints the report.
// Source failures never abort the run; only an undefined valuation does.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{StartedAt: r.now()}
	r.logger.Info("🔄 mNAV engine starting",
		zap.String("ticker", r.cfg.Company.Ticker),
		zap.String("asset", r.cfg.Asset.Symbol),
		zap.Time("started_at", res.StartedAt))

	defer r.flushMetrics()

	done := logger.TrackPerformance(r.logger, "fetch_inputs")
	res.Snapshot = r.market.Fetch(ctx)
	res.Holdings = r.holdings.Fetch(ctx)
	done()

	th := nav.Thresholds{
		UndervaluedBelow: r.cfg.Signal.UndervaluedBelow,
		OverboughtAbove:  r.cfg.Signal.OverboughtAbove,
	}
	valuation, err := nav.ComputeWith(res.Snapshot, res.Holdings, th)
	if err != nil {
		return res, fmt.Errorf("compute nav: %w", err)
	}
	res.Report = valuation

	if r.metrics != nil {
		r.metrics.RecordValuation(valuation.TreasuryValue, valuation.NavPerShare,
			valuation.MNAVRatio, valuation.PremiumPct, r.now())
	}

	if err := r.printer.Print(r.out, res.Snapshot, res.Holdings, valuation); err != nil {
		return res, fmt.Errorf("print report: %w", err)
	}

	if r.exporter != nil {
		rec := export.NewRecord(res.StartedAt, r.cfg.Company.Ticker, r.cfg.Asset.Symbol,
			res.Snapshot, res.Holdings, valuation)
		if err := r.exporter.Write(rec); err != nil {
			r.logger.Warn("Failed to export run", zap.String("path", r.cfg.Export.File), zap.Error(err))
		}
	}

	r.logger.Info("✅ Run complete",
		zap.Float64("mnav_ratio", valuation.MNAVRatio),
		zap.String("signal", string(valuation.Signal)),
		zap.Strings("fallbacks", res.Fallbacks()))
	return res, nil
}

func (r *Runner) flushMetrics() {
	if r.metrics == nil || r.cfg.Metrics.Textfile == "" {
		return
	}
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		r.logger.Warn("Failed to write metrics", zap.String("path", r.cfg.Metrics.Textfile), zap.Error(err))
	}
}
