// Package transport provides the HTTP session shared by every data source of a run.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/rovshanmuradov/mnav/internal/types"
)

const (
	maxBodyBytes   = 8 << 20
	maxErrorBody   = 256
	defaultTimeout = 5 * time.Second
)

// Session is a cookie-keeping HTTP client with a fixed identity and retry policy.
// It is safe to share between the quote, price and press-release fetchers.
type Session struct {
	client     *http.Client
	identity   Identity
	retries    int
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

type Option func(*Session)

// WithHTTPClient sets the client the session copies its transport, timeout
// and redirect policy from. The caller's client is never modified; a
// missing cookie jar is added to the copy only.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		if c == nil {
			return
		}
		clone := *c
		s.client = &clone
	}
}

// WithRetries sets how many extra attempts follow a transient failure
func WithRetries(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithBackOff sets the delay policy between attempts
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(s *Session) { s.newBackOff = fn }
}

// NewSession creates a session presenting identity on every request
func NewSession(identity Identity, logger *zap.Logger, opts ...Option) (*Session, error) {
	if identity == nil {
		identity = PlainIdentity{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		client:     &http.Client{},
		identity:   identity,
		newBackOff: defaultBackOff,
		logger:     logger.Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		s.client.Jar = jar
	}
	return s, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// Identity returns the identity strategy in use
func (s *Session) Identity() Identity {
	return s.identity
}

// Get fetches rawURL with query merged into it. Every attempt is bounded by
// timeout. Failures wrap types.ErrSourceUnavailable.
func (s *Session) Get(ctx context.Context, rawURL string, query url.Values, timeout time.Duration) ([]byte, error) {
	return s.get(ctx, rawURL, query, timeout, "")
}

// GetJSON fetches rawURL and decodes the JSON body into v
func (s *Session) GetJSON(ctx context.Context, rawURL string, query url.Values, timeout time.Duration, v any) error {
	body, err := s.get(ctx, rawURL, query, timeout, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode response: %w", types.ErrSourceUnavailable, err)
	}
	return nil
}

// Visit issues a single GET and discards the response whatever its status.
// It exists to collect cookies some endpoints hand out on a landing page.
func (s *Session) Visit(ctx context.Context, rawURL string, timeout time.Duration) error {
	reqCtx, cancel := context.WithTimeout(ctx, orDefault(timeout))
	defer cancel()

	req, err := s.newRequest(reqCtx, rawURL, "")
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return nil
}

func (s *Session) get(ctx context.Context, rawURL string, query url.Values, timeout time.Duration, accept string) ([]byte, error) {
	target, err := withQuery(rawURL, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		body, err := s.do(ctx, target, orDefault(timeout), accept)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug("Retrying request",
				zap.String("url", redact(target)),
				zap.Int("attempt", attempt),
				zap.Duration("next_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", types.ErrSourceUnavailable, redact(target), err)
	}
	return body, nil
}

func (s *Session) do(ctx context.Context, target string, timeout time.Duration, accept string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := s.newRequest(reqCtx, target, accept)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, URL: redact(target), Body: snippet}
	}
	return body, nil
}

func (s *Session) newRequest(ctx context.Context, target, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.identity.Apply(req.Header)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req, nil
}

func withQuery(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if len(query) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for key, values := range query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact drops the query string, which may carry a session crumb
func redact(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

func orDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultTimeout
	}
	return timeout
}
