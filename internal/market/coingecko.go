// internal/market/coingecko.go

package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/mnav/internal/transport"
	"github.com/rovshanmuradov/mnav/internal/types"
)

const simplePricePath = "/simple/price"

// CoinGeckoClient reads spot prices from the public simple price endpoint
type CoinGeckoClient struct {
	session *transport.Session
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

func NewCoinGeckoClient(session *transport.Session, baseURL string, timeout time.Duration, logger *zap.Logger) *CoinGeckoClient {
	return &CoinGeckoClient{
		session: session,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.Named("coingecko"),
	}
}

// SpotPrice returns the price of assetID quoted in vsCurrency.
// The response is shaped {"<asset-id>": {"<fiat>": <float>}}.
func (c *CoinGeckoClient) SpotPrice(ctx context.Context, assetID, vsCurrency string) (float64, error) {
	vsCurrency = strings.ToLower(vsCurrency)
	query := url.Values{"ids": {assetID}, "vs_currencies": {vsCurrency}}

	var resp map[string]map[string]*float64
	if err := c.session.GetJSON(ctx, c.baseURL+simplePricePath, query, c.timeout, &resp); err != nil {
		return 0, err
	}

	quotes, ok := resp[assetID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", types.ErrMissingField, assetID)
	}
	price, ok := quotes[vsCurrency]
	if !ok || price == nil {
		return 0, fmt.Errorf("%w: %s.%s", types.ErrMissingField, assetID, vsCurrency)
	}

	c.logger.Debug("Spot price received",
		zap.String("asset", assetID),
		zap.String("currency", vsCurrency),
		zap.Float64("price", *price))
	return *price, nil
}
