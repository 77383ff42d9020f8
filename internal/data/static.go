package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contactkeval/option-premium/internal/pricing"
)

// Quote is an implied volatility observation for one contract.
type Quote struct {
	Underlying        string
	Expiry            time.Time // only the calendar date is significant
	Side              pricing.Side
	Strike            float64
	ImpliedVolatility float64
}

// staticDataProvider serves implied volatility from an in-memory chain.
// It is read-only after construction and safe for concurrent use.
type staticDataProvider struct {
	quotes []Quote
}

// NewStaticDataProvider serves the given quotes. Lookups match the underlying
// case-insensitively, the expiry by calendar date and the strike to a tenth
// of a cent.
func NewStaticDataProvider(quotes ...Quote) *staticDataProvider {
	return &staticDataProvider{quotes: quotes}
}

func (staticDataProv *staticDataProvider) Name() string { return "static" }

func (staticDataProv *staticDataProvider) ImpliedVolatility(
	ctx context.Context,
	ticker string,
	expiryDate time.Time,
	strike float64,
	side pricing.Side,
) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	day := expiryDay(expiryDate)
	for _, q := range staticDataProv.quotes {
		if !strings.EqualFold(q.Underlying, ticker) || q.Side != side {
			continue
		}
		if expiryDay(q.Expiry) != day || !sameStrike(q.Strike, strike) {
			continue
		}
		return q.ImpliedVolatility, nil
	}

	return 0, fmt.Errorf("%s: %w", OptionSymbolFromParts(ticker, expiryDate, side, strike), ErrContractNotFound)
}
