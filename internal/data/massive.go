package data

// This file contains a Massive-backed provider that reads implied volatility
// from the Massive (formerly Polygon) option chain snapshot endpoint over raw
// HTTP.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contactkeval/option-premium/internal/logger"
	"github.com/contactkeval/option-premium/internal/pricing"
)

// massiveDataProvider implements ImpliedVolatilityProvider using Massive APIs.
type massiveDataProvider struct {
	// APIKey used for authenticating requests with Massive.
	APIKey string

	// Client is the HTTP client used to make API requests.
	Client *http.Client

	// BaseURL is the root endpoint for Massive APIs
	// (e.g., https://api.massive.com).
	BaseURL string

	// Rate is the risk-free rate used when the snapshot carries a quote but
	// no implied volatility and the IV is solved from the quote midpoint.
	Rate float64

	// now supplies the valuation instant for that solve when the context
	// carries none (see WithValuationTime).
	now func() time.Time
}

// massiveSnapshot is a single contract of the option chain snapshot.
type massiveSnapshot struct {
	Details struct {
		ContractType   string  `json:"contract_type"`
		ExerciseStyle  string  `json:"exercise_style"`
		ExpirationDate string  `json:"expiration_date"`
		StrikePrice    float64 `json:"strike_price"`
		Ticker         string  `json:"ticker"`
	} `json:"details"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	LastQuote         struct {
		Bid      float64 `json:"bid"`
		Ask      float64 `json:"ask"`
		Midpoint float64 `json:"midpoint"`
	} `json:"last_quote"`
	UnderlyingAsset struct {
		Price  float64 `json:"price"`
		Ticker string  `json:"ticker"`
	} `json:"underlying_asset"`
}

// massiveChainResp models the paginated chain snapshot response.
type massiveChainResp struct {
	Results   []massiveSnapshot `json:"results"`
	Status    string            `json:"status"`
	RequestID string            `json:"request_id"`
	NextURL   string            `json:"next_url"`
	Message   string            `json:"message"`
}

// NewMassiveDataProvider constructs a Massive-backed data provider.
//
// It initializes an HTTP client with sensible defaults for:
//   - timeouts
//   - connection pooling
//   - HTTP/2 support
//   - gzip decompression
func NewMassiveDataProvider(apiKey string) *massiveDataProvider {
	logger.Debugf("initializing Massive data provider")

	return &massiveDataProvider{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				DisableCompression:    false, // must be false to enable gzip auto-decompression
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		BaseURL: "https://api.massive.com",
		Rate:    0.01,
		now:     time.Now,
	}
}

func (massiveDataProv *massiveDataProvider) Name() string { return KindMassive }

// ImpliedVolatility returns the implied volatility of the contract matching
// ticker, expiry date, strike and side.
//
// The chain snapshot is filtered server-side by strike, expiry and contract
// type; results are matched again locally since filters are best-effort.
// When the matching snapshot has no IV but a usable quote, the IV is solved
// from the quote midpoint.
//
// Returns ErrContractNotFound when no snapshot matches.
func (massiveDataProv *massiveDataProvider) ImpliedVolatility(
	ctx context.Context,
	ticker string,
	expiryDate time.Time,
	strike float64,
	side pricing.Side,
) (float64, error) {

	symbol := OptionSymbolFromParts(ticker, expiryDate, side, strike)
	asOf := valuationTime(ctx, massiveDataProv.now)
	logger.Debugf("implied volatility lookup: %s", symbol)

	reqURL, err := massiveDataProv.chainURL(ticker, expiryDate, strike, side)
	if err != nil {
		return 0, err
	}

	// Handle pagination
	for reqURL != "" {
		logger.Tracef("chain snapshot request URL: %s", reqURL)

		chain, err := massiveDataProv.getChainPage(ctx, reqURL)
		if err != nil {
			return 0, err
		}

		logger.Tracef("received %d snapshots", len(chain.Results))

		for _, snap := range chain.Results {
			if !snap.matches(expiryDate, strike, side) {
				continue
			}
			if snap.ImpliedVolatility > 0 {
				logger.Debugf("%s iv=%.4f", symbol, snap.ImpliedVolatility)
				return snap.ImpliedVolatility, nil
			}
			q := snap.LastQuote
			if iv, ok := solveFromQuote(side, snap.UnderlyingAsset.Price, snap.Details.StrikePrice,
				q.Bid, q.Ask, q.Midpoint, massiveDataProv.Rate, expiryDate, asOf); ok {
				logger.Debugf("%s iv=%.4f solved from quote midpoint", symbol, iv)
				return iv, nil
			}
			logger.Debugf("%s has neither iv nor usable quote", symbol)
		}

		reqURL = chain.NextURL
	}

	return 0, fmt.Errorf("%s: %w", symbol, ErrContractNotFound)
}

func (massiveDataProv *massiveDataProvider) chainURL(
	ticker string,
	expiryDate time.Time,
	strike float64,
	side pricing.Side,
) (string, error) {
	u, err := url.Parse(massiveDataProv.BaseURL + "/v3/snapshot/options/" + url.PathEscape(strings.ToUpper(ticker)))
	if err != nil {
		return "", err
	}

	query := u.Query()
	query.Set("strike_price", fmt.Sprintf("%.8g", strike))
	query.Set("expiration_date", expiryDay(expiryDate))
	query.Set("contract_type", side.String())
	query.Set("limit", "250")
	query.Set("apiKey", massiveDataProv.APIKey)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func (massiveDataProv *massiveDataProvider) getChainPage(ctx context.Context, reqURL string) (*massiveChainResp, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+massiveDataProv.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "massive-client/1.0")

	resp, err := massiveDataProv.processGetRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var chain massiveChainResp
	if err := json.Unmarshal(body, &chain); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &chain, nil
}

// processGetRequest executes an HTTP GET request once.
//
// Status codes >= 400, including 429 rate limiting, are returned as errors
// carrying the API message. Requests are never retried.
func (massiveDataProv *massiveDataProvider) processGetRequest(req *http.Request) (*http.Response, error) {
	resp, err := massiveDataProv.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("massive api request failed: %w", err)
	}

	if resp.StatusCode < 400 {
		return resp, nil
	}
	defer resp.Body.Close()

	var dbg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	body, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(body, &dbg)
	msg := dbg.Message
	if msg == "" {
		msg = dbg.Error
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		logger.Errorf("massive rate limit hit: %s", msg)
	} else {
		logger.Errorf("massive API error status=%d message=%s", resp.StatusCode, msg)
	}
	return nil, fmt.Errorf("massive returned status %d: %s", resp.StatusCode, msg)
}

func (snap massiveSnapshot) matches(expiryDate time.Time, strike float64, side pricing.Side) bool {
	if !strings.EqualFold(snap.Details.ContractType, side.String()) {
		return false
	}
	if snap.Details.ExpirationDate != "" && snap.Details.ExpirationDate != expiryDay(expiryDate) {
		return false
	}
	return sameStrike(snap.Details.StrikePrice, strike)
}
