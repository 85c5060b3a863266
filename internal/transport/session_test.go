package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/mnav/internal/types"
)

func newTestSession(t *testing.T, identity Identity, retries int) *Session {
	t.Helper()
	s, err := NewSession(identity, zaptest.NewLogger(t),
		WithRetries(retries),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	require.NoError(t, err)
	return s
}

func TestSessionAppliesIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"ua":     r.Header.Get("User-Agent"),
			"accept": r.Header.Get("Accept"),
		})
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		identity Identity
		wantUA   string
	}{
		{name: "browser", identity: BrowserIdentity{}, wantUA: chromeUserAgent},
		{name: "plain", identity: PlainIdentity{}, wantUA: DefaultUserAgent},
		{name: "plain custom", identity: PlainIdentity{UserAgent: "research-bot/2"}, wantUA: "research-bot/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, tt.identity, 0)
			var echoed map[string]string
			require.NoError(t, s.GetJSON(context.Background(), srv.URL, nil, time.Second, &echoed))

			assert.Equal(t, tt.wantUA, echoed["ua"])
			assert.Equal(t, "application/json", echoed["accept"])
			assert.Equal(t, tt.identity.Name(), s.Identity().Name())
		})
	}
}

func TestSessionRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestSession(t, PlainIdentity{}, 2).Get(context.Background(), srv.URL, nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestSessionGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestSession(t, PlainIdentity{}, 1).Get(context.Background(), srv.URL, nil, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSessionClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "no such ticker", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestSession(t, PlainIdentity{}, 3).Get(context.Background(), srv.URL+"/x?crumb=secret", nil, time.Second)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)
	assert.NotContains(t, err.Error(), "secret")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "no such ticker", se.Body)
}

func TestSessionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := newTestSession(t, PlainIdentity{}, 0).Get(context.Background(), srv.URL, nil, 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSessionCancelledContextStopsRetrying(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSession(t, PlainIdentity{}, 5).Get(ctx, srv.URL, nil, time.Second)
	require.Error(t, err)
	assert.LessOrEqual(t, hits.Load(), int32(1))
}

func TestSessionGetJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>consent wall</html>"))
	}))
	defer srv.Close()

	var v map[string]any
	err := newTestSession(t, PlainIdentity{}, 0).GetJSON(context.Background(), srv.URL, nil, time.Second, &v)
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)
}

func TestSessionMergesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.RawQuery))
	}))
	defer srv.Close()

	gotQuery, err := newTestSession(t, PlainIdentity{}, 0).Get(context.Background(), srv.URL+"?range=1d",
		map[string][]string{"interval": {"1d"}}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "interval=1d&range=1d", string(gotQuery))
}

func TestSessionKeepsCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "consent", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("A3")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(c.Value))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestSession(t, BrowserIdentity{}, 0)
	require.NoError(t, s.Visit(context.Background(), srv.URL+"/landing", time.Second))

	body, err := s.Get(context.Background(), srv.URL+"/data", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "consent", string(body))
}

func TestStatusErrorTemporary(t *testing.T) {
	for code, want := range map[int]bool{
		http.StatusBadRequest:          false,
		http.StatusUnauthorized:        false,
		http.StatusNotFound:            false,
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusGatewayTimeout:      true,
	} {
		assert.Equal(t, want, (&StatusError{Code: code}).Temporary(), "status %d", code)
	}
}

func TestIdentityByName(t *testing.T) {
	id, err := IdentityByName("browser")
	require.NoError(t, err)
	assert.IsType(t, BrowserIdentity{}, id)

	id, err = IdentityByName("plain")
	require.NoError(t, err)
	assert.IsType(t, PlainIdentity{}, id)

	_, err = IdentityByName("tls-impersonate")
	assert.Error(t, err)
}

func TestVisitInvalidURL(t *testing.T) {
	err := newTestSession(t, PlainIdentity{}, 0).Visit(context.Background(), "http://[::1", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)

	var permanent *backoff.PermanentError
	assert.False(t, errors.As(err, &permanent))
}

func TestGetInvalidURL(t *testing.T) {
	_, err := newTestSession(t, PlainIdentity{}, 3).Get(context.Background(), "http://[::1", nil, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)
}

func TestWithHTTPClientLeavesCallerClientUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "v", Path: "/"})
	}))
	defer srv.Close()

	caller := &http.Client{Timeout: 3 * time.Second}
	s, err := NewSession(PlainIdentity{}, zaptest.NewLogger(t), WithHTTPClient(caller))
	require.NoError(t, err)

	assert.Nil(t, caller.Jar)
	assert.NotSame(t, caller, s.client)
	assert.NotNil(t, s.client.Jar)
	assert.Equal(t, 3*time.Second, s.client.Timeout)

	require.NoError(t, s.Visit(context.Background(), srv.URL, time.Second))
	assert.Nil(t, caller.Jar)
}
