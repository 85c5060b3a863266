package engine

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/mnav/internal/config"
	"github.com/rovshanmuradov/mnav/internal/nav"
	"github.com/rovshanmuradov/mnav/internal/types"
	"github.com/rovshanmuradov/mnav/internal/utils/metrics"
)

type fakeMarket struct {
	snap types.MarketSnapshot
}

func (f fakeMarket) Fetch(context.Context) types.MarketSnapshot { return f.snap }

type fakeHoldings struct {
	field types.Field
}

func (f fakeHoldings) Fetch(context.Context) types.Field { return f.field }

func referenceSnapshot() types.MarketSnapshot {
	return types.MarketSnapshot{
		StockPrice:        types.Live(29.35),
		CryptoPrice:       types.Live(3000),
		SharesOutstanding: types.Live(454_860_000),
	}
}

func TestRunPrintsReport(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "mnav.prom")
	var out bytes.Buffer

	snap := referenceSnapshot()
	snap.CryptoPrice = types.Fallback(3000, types.ErrSourceUnavailable)

	r := NewRunnerWith(cfg, zaptest.NewLogger(t), &out, metrics.NewCollector(),
		fakeMarket{snap}, fakeHoldings{types.Fallback(4_168_000, types.ErrNoPatternMatch)})

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1.0676696257197698, res.Report.MNAVRatio, 1e-9)
	assert.Equal(t, nav.SignalHold, res.Report.Signal)
	assert.Equal(t, []string{types.SourceCryptoPrice, types.SourceHoldings}, res.Fallbacks())

	text := out.String()
	assert.Contains(t, text, "[BMNR] BitMine Real-Time mNAV Engine")
	assert.Contains(t, text, "1.07x (Premium: 6.77%)")
	assert.Contains(t, text, "HOLD (fair value)")

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "mnav_nav_per_share 27.48977707426461")
}

func TestRunExportReplacesPreviousRun(t *testing.T) {
	cfg := config.Default()
	cfg.Export.File = filepath.Join(t.TempDir(), "runs.csv")

	r := NewRunnerWith(cfg, zap.NewNop(), &bytes.Buffer{}, nil,
		fakeMarket{referenceSnapshot()}, fakeHoldings{types.Live(4_168_000)})

	for i := 0; i < 2; i++ {
		_, err := r.Run(context.Background())
		require.NoError(t, err)
	}

	data, err := os.ReadFile(cfg.Export.File)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "header and the latest run only")
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,ticker,asset"))
	assert.Contains(t, lines[1], ",BMNR,ETH,29.35,live,")
}

func TestRunExportSkippedOnComputeError(t *testing.T) {
	cfg := config.Default()
	cfg.Export.File = filepath.Join(t.TempDir(), "run.json")
	cfg.Export.Format = "json"

	snap := referenceSnapshot()
	snap.SharesOutstanding = types.Live(0)
	r := NewRunnerWith(cfg, zap.NewNop(), &bytes.Buffer{}, nil,
		fakeMarket{snap}, fakeHoldings{types.Live(4_168_000)})

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, nav.ErrZeroShares)
	assert.NoFileExists(t, cfg.Export.File)
}

func TestRunUsesConfiguredThresholds(t *testing.T) {
	cfg := config.Default()
	cfg.Signal.UndervaluedBelow = 1.2
	cfg.Signal.OverboughtAbove = 3

	r := NewRunnerWith(cfg, zap.NewNop(), &bytes.Buffer{}, nil,
		fakeMarket{referenceSnapshot()}, fakeHoldings{types.Live(4_168_000)})

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nav.SignalUndervalued, res.Report.Signal)
	assert.Empty(t, res.Fallbacks())
}

func TestRunZeroSharesFails(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer

	snap := referenceSnapshot()
	snap.SharesOutstanding = types.Fallback(0, types.ErrMissingField)

	r := NewRunnerWith(cfg, zap.NewNop(), &out, metrics.NewCollector(),
		fakeMarket{snap}, fakeHoldings{types.Live(4_168_000)})

	res, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, nav.ErrZeroShares)
	assert.Empty(t, out.String())
	require.NotNil(t, res)
	assert.Equal(t, []string{types.SourceShares}, res.Fallbacks())
}

// TestRunAgainstStubServers drives the real sources end to end
func TestRunAgainstStubServers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/BMNR", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{},"indicators":{"quote":[{"close":[40.0]}]}}],"error":null}}`))
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("crumb1"))
	})
	mux.HandleFunc("/v10/finance/quoteSummary/BMNR", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/v3/simple/price", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2500}}`))
	})
	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><td>ETH Holdings</td><td>2,000,000 ETH</td></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.Default()
	cfg.Sources.QuotesURL = srv.URL
	cfg.Sources.CookieURL = srv.URL + "/"
	cfg.Sources.PriceURL = srv.URL + "/api/v3"
	cfg.Sources.PressReleaseURL = srv.URL + "/news"
	cfg.Sources.Identity = config.IdentityPlain
	cfg.Sources.Retries = 0
	cfg.Timeouts.Quote = time.Second
	cfg.Timeouts.Price = time.Second
	cfg.Timeouts.Scrape = time.Second

	collector := metrics.NewCollector()
	var out bytes.Buffer
	r, err := NewRunner(cfg, zap.NewNop(), &out, collector)
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.Live(40), res.Snapshot.StockPrice)
	assert.Equal(t, types.Live(2500), res.Snapshot.CryptoPrice)
	assert.Equal(t, types.Live(2_000_000), res.Holdings)
	assert.Equal(t, float64(config.DefaultShares), res.Snapshot.SharesOutstanding.Value)
	assert.ErrorIs(t, res.Snapshot.SharesOutstanding.Err, types.ErrSourceUnavailable)
	assert.Equal(t, []string{types.SourceShares}, res.Fallbacks())

	// 2,000,000 * 2500 / 454,860,000 = 10.9924...; 40 / 10.9924 = 3.6389
	assert.InDelta(t, 3.6389, res.Report.MNAVRatio, 1e-4)
	assert.Equal(t, nav.SignalOverbought, res.Report.Signal)
	assert.Contains(t, out.String(), "SELL")
}

func TestNewRunnerRejectsUnknownIdentity(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.Identity = "curl"
	_, err := NewRunner(cfg, zap.NewNop(), &bytes.Buffer{}, nil)
	assert.Error(t, err)
}
