// internal/market/yahoo.go

package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/mnav/internal/transport"
	"github.com/rovshanmuradov/mnav/internal/types"
)

const (
	chartPath        = "/v8/finance/chart/%s"
	quoteSummaryPath = "/v10/finance/quoteSummary/%s"
	crumbPath        = "/v1/test/getcrumb"
	statsModule      = "defaultKeyStatistics"
)

// chartResponse is the subset of the Yahoo chart payload we read
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// quoteSummaryResponse carries the key statistics module
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			DefaultKeyStatistics struct {
				SharesOutstanding struct {
					Raw *float64 `json:"raw"`
				} `json:"sharesOutstanding"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yahooError) Error() string {
	return fmt.Sprintf("yahoo %s: %s", e.Code, e.Description)
}

// YahooClient reads closing prices and share counts from Yahoo Finance
type YahooClient struct {
	session   *transport.Session
	baseURL   string
	cookieURL string
	timeout   time.Duration
	logger    *zap.Logger

	mu    sync.Mutex
	crumb string
}

// NewYahooClient creates a quotes client on the shared session.
// cookieURL may be empty, in which case no cookie priming happens.
func NewYahooClient(session *transport.Session, baseURL, cookieURL string, timeout time.Duration, logger *zap.Logger) *YahooClient {
	return &YahooClient{
		session:   session,
		baseURL:   strings.TrimRight(baseURL, "/"),
		cookieURL: cookieURL,
		timeout:   timeout,
		logger:    logger.Named("yahoo"),
	}
}

// LatestClose returns the last non-null daily close, or the regular market
// price when the day has no close yet.
func (c *YahooClient) LatestClose(ctx context.Context, ticker string) (float64, error) {
	var resp chartResponse
	query := url.Values{"range": {"1d"}, "interval": {"1d"}}
	endpoint := c.baseURL + fmt.Sprintf(chartPath, url.PathEscape(ticker))
	if err := c.session.GetJSON(ctx, endpoint, query, c.timeout, &resp); err != nil {
		return 0, err
	}

	if resp.Chart.Error != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return 0, fmt.Errorf("%w: no chart data for %s", types.ErrMissingField, ticker)
	}

	result := resp.Chart.Result[0]
	for _, quote := range result.Indicators.Quote {
		for i := len(quote.Close) - 1; i >= 0; i-- {
			if quote.Close[i] != nil {
				return *quote.Close[i], nil
			}
		}
	}
	if result.Meta.RegularMarketPrice != nil {
		return *result.Meta.RegularMarketPrice, nil
	}
	return 0, fmt.Errorf("%w: no close price for %s", types.ErrMissingField, ticker)
}

// SharesOutstanding reads defaultKeyStatistics.sharesOutstanding
func (c *YahooClient) SharesOutstanding(ctx context.Context, ticker string) (float64, error) {
	query := url.Values{"modules": {statsModule}}
	if crumb := c.getCrumb(ctx); crumb != "" {
		query.Set("crumb", crumb)
	}

	var resp quoteSummaryResponse
	endpoint := c.baseURL + fmt.Sprintf(quoteSummaryPath, url.PathEscape(ticker))
	if err := c.session.GetJSON(ctx, endpoint, query, c.timeout, &resp); err != nil {
		return 0, err
	}

	if resp.QuoteSummary.Error != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, resp.QuoteSummary.Error)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return 0, fmt.Errorf("%w: no key statistics for %s", types.ErrMissingField, ticker)
	}

	raw := resp.QuoteSummary.Result[0].DefaultKeyStatistics.SharesOutstanding.Raw
	if raw == nil {
		return 0, fmt.Errorf("%w: sharesOutstanding", types.ErrMissingField)
	}
	return *raw, nil
}

// getCrumb fetches the anti-CSRF crumb once per client. Failure is not
// fatal: the request is then sent without a crumb and may be refused.
func (c *YahooClient) getCrumb(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crumb != "" {
		return c.crumb
	}

	if c.cookieURL != "" {
		if err := c.session.Visit(ctx, c.cookieURL, c.timeout); err != nil {
			c.logger.Debug("Cookie priming failed", zap.Error(err))
		}
	}

	body, err := c.session.Get(ctx, c.baseURL+crumbPath, nil, c.timeout)
	if err != nil {
		c.logger.Debug("Crumb unavailable", zap.Error(err))
		return ""
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		c.logger.Debug("Crumb response rejected", zap.Int("length", len(crumb)))
		return ""
	}
	c.crumb = crumb
	return c.crumb
}
