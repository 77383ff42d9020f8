// Package estimator validates a premium request, resolves its volatility and
// runs the pricing engine.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/contactkeval/option-premium/internal/data"
	"github.com/contactkeval/option-premium/internal/expiry"
	"github.com/contactkeval/option-premium/internal/logger"
	"github.com/contactkeval/option-premium/internal/pricing"
)

// DefaultRiskFreeRate is the annual rate used when none is configured.
const DefaultRiskFreeRate = 0.01

// VolSource tells where the volatility of a result came from.
type VolSource int

const (
	VolSourceManual VolSource = iota
	VolSourceMarket
)

func (s VolSource) String() string {
	if s == VolSourceMarket {
		return "market"
	}
	return "manual"
}

func (s VolSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Request is one premium estimate. ManualVolatility is a percentage such as
// "25"; when blank the volatility is looked up from market data.
type Request struct {
	Ticker           string
	Spot             float64
	Strike           float64
	Side             pricing.Side
	Expiry           time.Time
	ManualVolatility string
}

// Result is the priced contract together with the display figures.
type Result struct {
	Ticker     string                 `json:"ticker,omitempty"`
	Contract   pricing.OptionContract `json:"contract"`
	Premium    float64                `json:"premium"`
	Volatility float64                `json:"volatility"`
	Source     VolSource              `json:"volatility_source"`
	Expiry     time.Time              `json:"expiry"`
	ComputedAt time.Time              `json:"computed_at"`
	Years      float64                `json:"years_to_expiry"`
	Breakdown  expiry.ExpiryBreakdown `json:"time_to_expiry"`
}

// Estimator prices premium requests against one volatility provider, clock
// and risk-free rate. It holds no per-request state and is safe for
// concurrent use when its provider is.
type Estimator struct {
	prov  data.ImpliedVolatilityProvider
	clock Clock
	rate  float64
}

// New returns an Estimator. prov may be nil when only manual volatility is
// used; clock defaults to SystemClock.
func New(prov data.ImpliedVolatilityProvider, clock Clock, rate float64) *Estimator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Estimator{prov: prov, clock: clock, rate: rate}
}

// Estimate prices req. The clock is read once so the time-to-expiry used for
// pricing and the displayed breakdown agree. Rejections are *Error values.
func (e *Estimator) Estimate(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		logger.Infof("rejected request: %v", err)
		return nil, err
	}

	now := e.clock.Now()
	years := expiry.YearsUntil(req.Expiry, now)
	if years <= 0 {
		logger.Infof("rejected request: expiry %s is not after %s", req.Expiry.Format(time.RFC3339), now.Format(time.RFC3339))
		return nil, newError(KindInvalidExpiry, nil)
	}

	vol, source, err := e.volatility(data.WithValuationTime(ctx, now), req)
	if err != nil {
		return nil, err
	}

	contract := pricing.OptionContract{
		Spot:       req.Spot,
		Strike:     req.Strike,
		Years:      years,
		Volatility: vol,
		Rate:       e.rate,
		Side:       req.Side,
	}

	res := &Result{
		Ticker:     strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Contract:   contract,
		Premium:    contract.Price(),
		Volatility: vol,
		Source:     source,
		Expiry:     req.Expiry,
		ComputedAt: now,
		Years:      years,
		Breakdown:  expiry.Breakdown(req.Expiry, now),
	}

	logger.Infof("%s %s strike=%.2f spot=%.2f T=%.6f iv=%.4f (%s) premium=%.4f",
		res.Ticker, req.Side, req.Strike, req.Spot, years, vol, source, res.Premium)
	return res, nil
}

func validate(req Request) error {
	if !(req.Spot > 0) || math.IsInf(req.Spot, 0) {
		return newError(KindInvalidInput, fmt.Errorf("spot price must be positive, got %v", req.Spot))
	}
	if !(req.Strike > 0) || math.IsInf(req.Strike, 0) {
		return newError(KindInvalidInput, fmt.Errorf("strike price must be positive, got %v", req.Strike))
	}
	if req.Side != pricing.Call && req.Side != pricing.Put {
		return newError(KindInvalidInput, fmt.Errorf("unknown option side %d", int(req.Side)))
	}
	if req.Expiry.IsZero() {
		return newError(KindInvalidInput, errors.New("expiry is required"))
	}
	return nil
}

func (e *Estimator) volatility(ctx context.Context, req Request) (float64, VolSource, error) {
	if strings.TrimSpace(req.ManualVolatility) != "" {
		vol, err := ParseManualVolatility(req.ManualVolatility)
		if err != nil {
			logger.Infof("rejected request: %v", err)
			return 0, VolSourceManual, err
		}
		return vol, VolSourceManual, nil
	}

	if e.prov == nil {
		return 0, VolSourceMarket, newError(KindUpstreamProviderFailure, errors.New("no market data provider configured"))
	}
	if strings.TrimSpace(req.Ticker) == "" {
		return 0, VolSourceMarket, newError(KindInvalidInput, errors.New("ticker is required for a market volatility lookup"))
	}

	vol, err := e.prov.ImpliedVolatility(ctx, strings.TrimSpace(req.Ticker), req.Expiry, req.Strike, req.Side)
	switch {
	case errors.Is(err, data.ErrContractNotFound):
		logger.Infof("rejected request: %v", err)
		return 0, VolSourceMarket, newError(KindVolatilityNotFound, err)
	case err != nil:
		logger.Errorf("%s lookup failed: %v", e.prov.Name(), err)
		return 0, VolSourceMarket, newError(KindUpstreamProviderFailure, err)
	case !(vol > 0) || math.IsInf(vol, 0):
		return 0, VolSourceMarket, newError(KindVolatilityNotFound, fmt.Errorf("%s returned no usable implied volatility (%v)", e.prov.Name(), vol))
	}
	return vol, VolSourceMarket, nil
}

// ParseManualVolatility converts a percentage string such as "25" or "25.5"
// into an annualized decimal volatility (0.25, 0.255).
func ParseManualVolatility(s string) (float64, error) {
	pct, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, newError(KindMalformedManualVolatility, err)
	}
	if !(pct > 0) || math.IsInf(pct, 0) {
		return 0, newError(KindMalformedManualVolatility, fmt.Errorf("volatility must be a positive percentage, got %q", strings.TrimSpace(s)))
	}
	return pct / 100, nil
}
