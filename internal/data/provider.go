// Package data provides implied-volatility sources backed by market-data
// APIs or local option-chain files.
package data

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/contactkeval/option-premium/internal/expiry"
	"github.com/contactkeval/option-premium/internal/logger"
	"github.com/contactkeval/option-premium/internal/pricing"
)

// ErrContractNotFound is returned when the chain has no contract matching the
// requested ticker, expiry, strike and side.
var ErrContractNotFound = errors.New("option contract not found")

// ImpliedVolatilityProvider looks up the market implied volatility of a single
// option contract. Errors other than ErrContractNotFound are upstream failures.
type ImpliedVolatilityProvider interface {
	ImpliedVolatility(ctx context.Context, ticker string, expiry time.Time, strike float64, side pricing.Side) (float64, error)
	Name() string
}

// Provider kinds accepted by New.
const (
	KindMassive = "massive"
	KindPolygon = "polygon"
	KindCSV     = "csv"
)

// Options selects and configures a provider.
type Options struct {
	Kind      string
	APIKey    string
	BaseURL   string
	ChainFile string
	Timeout   time.Duration
	Rate      float64 // used when IV has to be solved from a quote
}

// New constructs the provider named by opts.Kind.
func New(opts Options) (ImpliedVolatilityProvider, error) {
	switch strings.ToLower(opts.Kind) {
	case KindMassive, "":
		p := NewMassiveDataProvider(opts.APIKey)
		if opts.BaseURL != "" {
			p.BaseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		if opts.Timeout > 0 {
			p.Client.Timeout = opts.Timeout
		}
		p.Rate = opts.Rate
		return p, nil
	case KindPolygon:
		return NewPolygonDataProvider(opts), nil
	case KindCSV:
		if opts.ChainFile == "" {
			return nil, fmt.Errorf("csv provider requires a chain file")
		}
		return NewCSVDataProvider(opts.ChainFile), nil
	}
	return nil, fmt.Errorf("unknown data provider %q", opts.Kind)
}

// OptionSymbolFromParts builds an OCC-style ticker:
// O:<root><YYMMDD><C|P><strike*1000 padded to 8 digits>
func OptionSymbolFromParts(underlying string, expiryDate time.Time, side pricing.Side, strike float64) string {
	expDt := expiryDate.Format("060102")
	optType := "C"
	if side == pricing.Put {
		optType = "P"
	}
	strikeInt := int(math.Round(strike * 1000))
	return fmt.Sprintf("O:%s%s%s%08d", strings.ToUpper(underlying), expDt, optType, strikeInt)
}

// sameStrike compares strikes at a tenth of a cent.
func sameStrike(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

// expiryDay formats the calendar date of an expiry instant in its own location.
func expiryDay(t time.Time) string {
	return t.Format("2006-01-02")
}

type valuationKey struct{}

// WithValuationTime attaches the instant a lookup is valued at. Backends that
// solve IV from a quote measure time to expiry from it.
func WithValuationTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, valuationKey{}, t)
}

// ValuationTime returns the instant attached by WithValuationTime.
func ValuationTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(valuationKey{}).(time.Time)
	return t, ok && !t.IsZero()
}

func valuationTime(ctx context.Context, fallback func() time.Time) time.Time {
	if t, ok := ValuationTime(ctx); ok {
		return t
	}
	if fallback == nil {
		return time.Now()
	}
	return fallback()
}

// solveFromQuote backs an implied volatility out of a quote when the snapshot
// carries none. The midpoint is preferred, then (bid+ask)/2.
func solveFromQuote(
	side pricing.Side,
	spot, strike, bid, ask, midpoint, rate float64,
	expiryDate, asOf time.Time,
) (float64, bool) {
	mid := midpoint
	if mid <= 0 && bid > 0 && ask > 0 {
		mid = (bid + ask) / 2
	}
	years := expiry.YearsUntil(expiryDate, asOf)
	if mid <= 0 || spot <= 0 || years <= 0 {
		return 0, false
	}

	iv, err := pricing.ImpliedVolatility(side, spot, strike, years, rate, mid)
	if err != nil {
		logger.Tracef("iv solve failed: %v", err)
		return 0, false
	}
	return iv, true
}
