// internal/market/fetcher.go

package market

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/mnav/internal/types"
)

// QuoteProvider supplies equity data for a ticker
type QuoteProvider interface {
	LatestClose(ctx context.Context, ticker string) (float64, error)
	SharesOutstanding(ctx context.Context, ticker string) (float64, error)
}

// PriceProvider supplies crypto spot prices
type PriceProvider interface {
	SpotPrice(ctx context.Context, assetID, vsCurrency string) (float64, error)
}

// Settings identifies what to fetch and what to substitute on failure
type Settings struct {
	Ticker     string
	AssetID    string
	VsCurrency string

	FallbackStockPrice  float64
	FallbackShares      float64
	FallbackCryptoPrice float64
}

// Fetcher assembles a MarketSnapshot. Every source degrades to its fallback
// independently; Fetch itself never fails.
type Fetcher struct {
	quotes   QuoteProvider
	prices   PriceProvider
	settings Settings
	recorder types.Recorder
	logger   *zap.Logger
}

func NewFetcher(quotes QuoteProvider, prices PriceProvider, settings Settings, recorder types.Recorder, logger *zap.Logger) *Fetcher {
	if recorder == nil {
		recorder = types.NopRecorder{}
	}
	return &Fetcher{
		quotes:   quotes,
		prices:   prices,
		settings: settings,
		recorder: recorder,
		logger:   logger.Named("market"),
	}
}

// Fetch retrieves stock price, share count and crypto price in that order
func (f *Fetcher) Fetch(ctx context.Context) types.MarketSnapshot {
	var snap types.MarketSnapshot

	snap.StockPrice = f.resolve(types.SourceStockPrice, f.settings.FallbackStockPrice, func() (float64, error) {
		return f.quotes.LatestClose(ctx, f.settings.Ticker)
	})

	snap.SharesOutstanding = f.resolve(types.SourceShares, f.settings.FallbackShares, func() (float64, error) {
		return f.quotes.SharesOutstanding(ctx, f.settings.Ticker)
	})
	if snap.SharesOutstanding.IsLive() {
		f.logger.Info("Shares outstanding received",
			zap.String("ticker", f.settings.Ticker),
			zap.Float64("shares", snap.SharesOutstanding.Value))
	}

	snap.CryptoPrice = f.resolve(types.SourceCryptoPrice, f.settings.FallbackCryptoPrice, func() (float64, error) {
		return f.prices.SpotPrice(ctx, f.settings.AssetID, f.settings.VsCurrency)
	})

	return snap
}

func (f *Fetcher) resolve(source string, fallback float64, fetch func() (float64, error)) types.Field {
	start := time.Now()
	value, err := fetch()

	field := types.Live(value)
	if err != nil {
		err = types.NewSourceError(source, err)
		field = types.Fallback(fallback, err)
		f.logger.Warn("Using fallback value",
			zap.String("source", source),
			zap.Float64("fallback", fallback),
			zap.Error(err))
	}

	f.recorder.RecordSource(source, field, time.Since(start))
	return field
}
