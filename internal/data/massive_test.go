package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-premium/internal/pricing"
)

var (
	underlying = "AAPL"
	expiryDate = time.Date(2025, 1, 17, 15, 0, 0, 0, time.UTC)
)

func newTestMassiveProvider(srv *httptest.Server) *massiveDataProvider {
	return &massiveDataProvider{
		APIKey:  "test",
		Client:  srv.Client(),
		BaseURL: srv.URL, // IMPORTANT
		Rate:    0.01,
		now:     func() time.Time { return expiryDate.AddDate(0, 0, -30) },
	}
}

func TestMassiveProvider_ImpliedVolatility(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/snapshot/options/AAPL", r.URL.Path)
		assert.Equal(t, "222.5", r.URL.Query().Get("strike_price"))
		assert.Equal(t, "2025-01-17", r.URL.Query().Get("expiration_date"))
		assert.Equal(t, "call", r.URL.Query().Get("contract_type"))
		assert.Equal(t, "Bearer test", r.Header.Get("Authorization"))

		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"details": {"contract_type": "put", "expiration_date": "2025-01-17", "strike_price": 222.5}, "implied_volatility": 0.31},
				{"details": {"contract_type": "call", "expiration_date": "2025-01-17", "strike_price": 222.5, "ticker": "O:AAPL250117C00222500"}, "implied_volatility": 0.2534}
			]
		}`))
	}))
	defer srv.Close()

	iv, err := newTestMassiveProvider(srv).ImpliedVolatility(context.Background(), underlying, expiryDate, 222.5, pricing.Call)
	require.NoError(t, err)
	assert.Equal(t, 0.2534, iv)
}

func TestMassiveProvider_StrikeAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "OK", "results": [
			{"details": {"contract_type": "call", "expiration_date": "2025-01-17", "strike_price": 225}, "implied_volatility": 0.24}
		]}`))
	}))
	defer srv.Close()

	_, err := newTestMassiveProvider(srv).ImpliedVolatility(context.Background(), underlying, expiryDate, 222.5, pricing.Call)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContractNotFound))
}

func TestMassiveProvider_HTTPError(t *testing.T) {
	// fake server returning 500
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"internal error"}`))
	}))
	defer srv.Close()

	_, err := newTestMassiveProvider(srv).ImpliedVolatility(context.Background(), underlying, expiryDate, 222.5, pricing.Call)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrContractNotFound))
	assert.Contains(t, err.Error(), "internal error")
}

func TestMassiveProvider_RateLimitIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":"ERROR","error":"exceeded the maximum requests per minute"}`))
	}))
	defer srv.Close()

	_, err := newTestMassiveProvider(srv).ImpliedVolatility(context.Background(), underlying, expiryDate, 222.5, pricing.Put)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "429")
}

func TestMassiveProvider_Pagination(t *testing.T) {
	callCount := 0

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++

		if callCount == 1 {
			w.Write([]byte(`{
				"results": [
					{"details": {"contract_type": "put", "expiration_date": "2025-01-17", "strike_price": 220}, "implied_volatility": 0.27}
				],
				"next_url": "` + srv.URL + `/page2"
			}`))
			return
		}

		assert.Equal(t, "/page2", r.URL.Path)
		w.Write([]byte(`{
				"results": [
					{"details": {"contract_type": "put", "expiration_date": "2025-01-17", "strike_price": 222.5}, "implied_volatility": 0.29}
				]
			}`))
	}))
	defer srv.Close()

	iv, err := newTestMassiveProvider(srv).ImpliedVolatility(context.Background(), underlying, expiryDate, 222.5, pricing.Put)
	require.NoError(t, err)
	assert.Equal(t, 0.29, iv)
	assert.Equal(t, 2, callCount)
}

func TestMassiveProvider_SolvesFromQuoteMidpoint(t *testing.T) {
	years := 30.0 / 365.0
	mid := pricing.BlackScholesPrice(pricing.Call, 223, 222.5, years, 0.01, 0.3)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results": [{
			"details": {"contract_type": "call", "expiration_date": "2025-01-17", "strike_price": 222.5},
			"last_quote": {"bid": 0, "ask": 0, "midpoint": %.10f},
			"underlying_asset": {"price": 223, "ticker": "AAPL"}
		}]}`, mid)
	}))
	defer srv.Close()

	iv, err := newTestMassiveProvider(srv).ImpliedVolatility(context.Background(), underlying, expiryDate, 222.5, pricing.Call)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, iv, 1e-4)
}

func TestMassiveProvider_QuoteSolveUsesValuationTime(t *testing.T) {
	asOf := expiryDate.AddDate(0, 0, -30)
	mid := pricing.BlackScholesPrice(pricing.Call, 223, 222.5, 30.0/365.0, 0.01, 0.3)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results": [{
			"details": {"contract_type": "call", "expiration_date": "2025-01-17", "strike_price": 222.5},
			"last_quote": {"midpoint": %.10f},
			"underlying_asset": {"price": 223}
		}]}`, mid)
	}))
	defer srv.Close()

	p := newTestMassiveProvider(srv)
	p.now = func() time.Time { return expiryDate.AddDate(0, 0, -200) }

	iv, err := p.ImpliedVolatility(WithValuationTime(context.Background(), asOf), underlying, expiryDate, 222.5, pricing.Call)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, iv, 1e-4)
}

func TestMassiveProvider_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestMassiveProvider(srv).ImpliedVolatility(ctx, underlying, expiryDate, 222.5, pricing.Call)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrContractNotFound))
}
