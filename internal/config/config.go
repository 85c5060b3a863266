// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Company  CompanyConfig  `mapstructure:"company"`
	Asset    AssetConfig    `mapstructure:"asset"`
	Fallback FallbackConfig `mapstructure:"fallback"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Signal   SignalConfig   `mapstructure:"signal"`
	Holdings HoldingsConfig `mapstructure:"holdings"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Export   ExportConfig   `mapstructure:"export"`
}

type CompanyConfig struct {
	Ticker string `mapstructure:"ticker"`
	Name   string `mapstructure:"name"`
}

type AssetConfig struct {
	ID         string `mapstructure:"id"`
	Symbol     string `mapstructure:"symbol"`
	VsCurrency string `mapstructure:"vs_currency"`
}

// FallbackConfig holds the values substituted when a source fails.
// They are deliberately not validated: a zero share count must reach the NAV guard.
type FallbackConfig struct {
	Shares      float64 `mapstructure:"shares"`
	Holdings    float64 `mapstructure:"holdings"`
	StockPrice  float64 `mapstructure:"stock_price"`
	CryptoPrice float64 `mapstructure:"crypto_price"`
}

type SourcesConfig struct {
	QuotesURL       string `mapstructure:"quotes_url"`
	CookieURL       string `mapstructure:"cookie_url"`
	PriceURL        string `mapstructure:"price_url"`
	PressReleaseURL string `mapstructure:"press_release_url"`
	Identity        string `mapstructure:"identity"`
	Retries         int    `mapstructure:"retries"`
}

type TimeoutsConfig struct {
	Quote  time.Duration `mapstructure:"quote"`
	Price  time.Duration `mapstructure:"price"`
	Scrape time.Duration `mapstructure:"scrape"`
}

type SignalConfig struct {
	UndervaluedBelow float64 `mapstructure:"undervalued_below"`
	OverboughtAbove  float64 `mapstructure:"overbought_above"`
}

type HoldingsConfig struct {
	Anchor string `mapstructure:"anchor"`
	MaxGap int    `mapstructure:"max_gap"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ExportConfig enables the current-run export file; an empty File disables it
type ExportConfig struct {
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

const (
	DefaultTicker          = "BMNR"
	DefaultCompanyName     = "BitMine"
	DefaultAssetID         = "ethereum"
	DefaultAssetSymbol     = "ETH"
	DefaultVsCurrency      = "usd"
	DefaultShares          = 454_860_000
	DefaultHoldings        = 4_168_000
	DefaultStockPrice      = 29.35
	DefaultCryptoPrice     = 3000.00
	DefaultQuotesURL       = "https://query2.finance.yahoo.com"
	DefaultCookieURL       = "https://fc.yahoo.com"
	DefaultPriceURL        = "https://api.coingecko.com/api/v3"
	DefaultPressReleaseURL = "https://www.prnewswire.com/news/bitmine-immersion-technologies-inc./"
	DefaultIdentity        = IdentityBrowser
	DefaultRetries         = 1
	DefaultQuoteTimeout    = 5 * time.Second
	DefaultPriceTimeout    = 5 * time.Second
	DefaultScrapeTimeout   = 10 * time.Second
	DefaultUndervalued     = 1.0
	DefaultOverbought      = 2.0
	DefaultHoldingsAnchor  = "Holdings"
	DefaultHoldingsMaxGap  = 200
	DefaultExportFormat    = "csv"

	IdentityBrowser = "browser"
	IdentityPlain   = "plain"

	// EnvPrefix prefixes every environment override, e.g. MNAV_COMPANY_TICKER
	EnvPrefix = "MNAV"

	maxTimeout = time.Minute
	maxGapRE2  = 1000
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"company.ticker":            DefaultTicker,
		"company.name":              DefaultCompanyName,
		"asset.id":                  DefaultAssetID,
		"asset.symbol":              DefaultAssetSymbol,
		"asset.vs_currency":         DefaultVsCurrency,
		"fallback.shares":           DefaultShares,
		"fallback.holdings":         DefaultHoldings,
		"fallback.stock_price":      DefaultStockPrice,
		"fallback.crypto_price":     DefaultCryptoPrice,
		"sources.quotes_url":        DefaultQuotesURL,
		"sources.cookie_url":        DefaultCookieURL,
		"sources.price_url":         DefaultPriceURL,
		"sources.press_release_url": DefaultPressReleaseURL,
		"sources.identity":          DefaultIdentity,
		"sources.retries":           DefaultRetries,
		"timeouts.quote":            DefaultQuoteTimeout,
		"timeouts.price":            DefaultPriceTimeout,
		"timeouts.scrape":           DefaultScrapeTimeout,
		"signal.undervalued_below":  DefaultUndervalued,
		"signal.overbought_above":   DefaultOverbought,
		"holdings.anchor":           DefaultHoldingsAnchor,
		"holdings.max_gap":          DefaultHoldingsMaxGap,
		"log.file":                  "",
		"log.debug":                 false,
		"metrics.textfile":          "",
		"export.file":               "",
		"export.format":             DefaultExportFormat,
	}
}

// LoadConfig reads the config file at path, applies MNAV_* environment
// overrides and validates the result. An empty path or a missing file
// yields the built-in defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	loadEnvironmentVariables(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without touching disk or env
func Default() *Config {
	return &Config{
		Company: CompanyConfig{Ticker: DefaultTicker, Name: DefaultCompanyName},
		Asset:   AssetConfig{ID: DefaultAssetID, Symbol: DefaultAssetSymbol, VsCurrency: DefaultVsCurrency},
		Fallback: FallbackConfig{
			Shares:      DefaultShares,
			Holdings:    DefaultHoldings,
			StockPrice:  DefaultStockPrice,
			CryptoPrice: DefaultCryptoPrice,
		},
		Sources: SourcesConfig{
			QuotesURL:       DefaultQuotesURL,
			CookieURL:       DefaultCookieURL,
			PriceURL:        DefaultPriceURL,
			PressReleaseURL: DefaultPressReleaseURL,
			Identity:        DefaultIdentity,
			Retries:         DefaultRetries,
		},
		Timeouts: TimeoutsConfig{
			Quote:  DefaultQuoteTimeout,
			Price:  DefaultPriceTimeout,
			Scrape: DefaultScrapeTimeout,
		},
		Signal:   SignalConfig{UndervaluedBelow: DefaultUndervalued, OverboughtAbove: DefaultOverbought},
		Holdings: HoldingsConfig{Anchor: DefaultHoldingsAnchor, MaxGap: DefaultHoldingsMaxGap},
		Export:   ExportConfig{Format: DefaultExportFormat},
	}
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Company.Ticker) == "" {
		return errors.New("missing company.ticker")
	}
	if cfg.Asset.ID == "" || cfg.Asset.Symbol == "" || cfg.Asset.VsCurrency == "" {
		return errors.New("asset.id, asset.symbol and asset.vs_currency are required")
	}
	for name, rawURL := range map[string]string{
		"sources.quotes_url":        cfg.Sources.QuotesURL,
		"sources.price_url":         cfg.Sources.PriceURL,
		"sources.press_release_url": cfg.Sources.PressReleaseURL,
	} {
		if err := validateURLWithCache(rawURL, "http"); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	// an empty cookie_url turns cookie priming off
	if cfg.Sources.CookieURL != "" {
		if err := validateURLWithCache(cfg.Sources.CookieURL, "http"); err != nil {
			return fmt.Errorf("invalid sources.cookie_url: %w", err)
		}
	}
	switch cfg.Sources.Identity {
	case IdentityBrowser, IdentityPlain:
	default:
		return fmt.Errorf("unknown sources.identity %q", cfg.Sources.Identity)
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Holdings.Anchor) == "" {
		return errors.New("missing holdings.anchor")
	}
	switch strings.ToLower(cfg.Export.Format) {
	case "csv", "json":
	default:
		return fmt.Errorf("unsupported export.format %q", cfg.Export.Format)
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.Sources.Retries < 0 {
		return errors.New("invalid sources.retries")
	}
	for name, d := range map[string]time.Duration{
		"timeouts.quote":  cfg.Timeouts.Quote,
		"timeouts.price":  cfg.Timeouts.Price,
		"timeouts.scrape": cfg.Timeouts.Scrape,
	} {
		if d <= 0 || d > maxTimeout {
			return fmt.Errorf("invalid %s: %s", name, d)
		}
	}
	if cfg.Signal.UndervaluedBelow > cfg.Signal.OverboughtAbove {
		return errors.New("signal.undervalued_below must not exceed signal.overbought_above")
	}
	if cfg.Holdings.MaxGap < 1 || cfg.Holdings.MaxGap > maxGapRE2 {
		return fmt.Errorf("holdings.max_gap must be within 1..%d", maxGapRE2)
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
