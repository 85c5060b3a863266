// internal/holdings/scraper.go
package holdings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/mnav/internal/transport"
	"github.com/rovshanmuradov/mnav/internal/types"
)

// Scraper reads the treasury holdings figure from a press-release page
type Scraper struct {
	session   *transport.Session
	pageURL   string
	timeout   time.Duration
	fallback  float64
	extractor *Extractor
	recorder  types.Recorder
	logger    *zap.Logger
}

func NewScraper(session *transport.Session, pageURL string, timeout time.Duration, fallback float64,
	extractor *Extractor, recorder types.Recorder, logger *zap.Logger) *Scraper {
	if extractor == nil {
		extractor = defaultExtractor
	}
	if recorder == nil {
		recorder = types.NopRecorder{}
	}
	return &Scraper{
		session:   session,
		pageURL:   pageURL,
		timeout:   timeout,
		fallback:  fallback,
		extractor: extractor,
		recorder:  recorder,
		logger:    logger.Named("holdings"),
	}
}

// Fetch returns the scraped holdings, or the fallback quantity when the page
// cannot be fetched or does not contain the figure. It never fails.
func (s *Scraper) Fetch(ctx context.Context) types.Field {
	start := time.Now()

	value, err := s.scrape(ctx)
	field := types.Live(value)
	if err != nil {
		err = types.NewSourceError(types.SourceHoldings, err)
		field = types.Fallback(s.fallback, err)

		log := s.logger.Warn
		if errors.Is(err, types.ErrNoPatternMatch) {
			log = s.logger.Info
		}
		log("Using fallback holdings",
			zap.String("url", s.pageURL),
			zap.Float64("fallback", s.fallback),
			zap.Error(err))
	} else {
		s.logger.Debug("Holdings extracted", zap.Float64("holdings", value))
	}

	s.recorder.RecordSource(types.SourceHoldings, field, time.Since(start))
	return field
}

func (s *Scraper) scrape(ctx context.Context) (float64, error) {
	body, err := s.session.Get(ctx, s.pageURL, nil, s.timeout)
	if err != nil {
		return 0, err
	}

	text, err := TextFromHTML(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}

	return s.extractor.Extract(text)
}
