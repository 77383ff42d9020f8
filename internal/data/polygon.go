package data

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/contactkeval/option-premium/internal/logger"
	"github.com/contactkeval/option-premium/internal/pricing"
)

// polygonDataProvider implements ImpliedVolatilityProvider using the
// Polygon.io client SDK.
type polygonDataProvider struct {
	client *polygon.Client

	// Rate is the risk-free rate used when IV is solved from a quote.
	Rate float64

	now func() time.Time
}

// NewPolygonDataProvider constructs a provider backed by the Polygon SDK.
//
// Parameters:
//   - opts: APIKey authenticates, Timeout (when positive) replaces the SDK
//     default, Rate is used for quote solves.
//
// Returns:
//   - a provider whose HTTP client never retries and logs through the
//     package logger.
func NewPolygonDataProvider(opts Options) *polygonDataProvider {
	logger.Debugf("initializing Polygon data provider")

	client := polygon.New(opts.APIKey)
	client.HTTP.SetRetryCount(0)
	client.HTTP.SetLogger(logger.WithField("component", KindPolygon))
	if opts.Timeout > 0 {
		client.HTTP.SetTimeout(opts.Timeout)
	}

	return &polygonDataProvider{client: client, Rate: opts.Rate, now: time.Now}
}

func (polygonDataProv *polygonDataProvider) Name() string { return KindPolygon }

// ImpliedVolatility iterates the option chain snapshot filtered to the
// contract and returns the first matching implied volatility. A match with
// no IV but a usable quote has its IV solved from the quote midpoint.
func (polygonDataProv *polygonDataProvider) ImpliedVolatility(
	ctx context.Context,
	ticker string,
	expiryDate time.Time,
	strike float64,
	side pricing.Side,
) (float64, error) {

	params := chainParams(ticker, expiryDate, strike, side)
	asOf := valuationTime(ctx, polygonDataProv.now)
	logger.Debugf("polygon chain snapshot: %s %s %s %.2f", ticker, expiryDay(expiryDate), side, strike)

	iter := polygonDataProv.client.ListOptionsChainSnapshot(ctx, params)
	for iter.Next() {
		item := iter.Item()
		if !sameStrike(item.Details.StrikePrice, strike) || item.Details.ContractType != side.String() {
			continue
		}
		if item.ImpliedVolatility > 0 {
			return item.ImpliedVolatility, nil
		}
		q := item.LastQuote
		if iv, ok := solveFromQuote(side, item.UnderlyingAsset.Price, item.Details.StrikePrice,
			q.Bid, q.Ask, q.Midpoint, polygonDataProv.Rate, expiryDate, asOf); ok {
			logger.Debugf("%s iv=%.4f solved from quote midpoint", item.Details.Ticker, iv)
			return iv, nil
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("polygon chain snapshot: %w", err)
	}

	return 0, fmt.Errorf("%s: %w", OptionSymbolFromParts(ticker, expiryDate, side, strike), ErrContractNotFound)
}

func chainParams(ticker string, expiryDate time.Time, strike float64, side pricing.Side) *models.ListOptionsChainParams {
	contractType := models.ContractCall
	if side == pricing.Put {
		contractType = models.ContractPut
	}
	day := models.Date(time.Date(expiryDate.Year(), expiryDate.Month(), expiryDate.Day(), 0, 0, 0, 0, time.UTC))
	limit := 250

	return &models.ListOptionsChainParams{
		UnderlyingAsset:  ticker,
		StrikePrice:      &strike,
		ContractType:     &contractType,
		ExpirationDateEQ: &day,
		Limit:            &limit,
	}
}
