package estimator

import (
	"time"

	"github.com/contactkeval/option-premium/internal/expiry"
	"github.com/contactkeval/option-premium/internal/pricing"
)

// Form carries the raw fields a user enters: the expiry as a calendar date
// and the side and volatility as text.
type Form struct {
	Ticker string  `schema:"ticker" json:"ticker"`
	Spot   float64 `schema:"spot" json:"spot"`
	Strike float64 `schema:"strike" json:"strike"`
	Side   string  `schema:"side" json:"side"`
	Year   int     `schema:"year" json:"year"`
	Month  int     `schema:"month" json:"month"`
	Day    int     `schema:"day" json:"day"`
	IV     string  `schema:"iv" json:"iv,omitempty"` // percent, blank for a market lookup
}

// Request converts the form into a Request with the expiry at hour in loc.
// An unknown side or a date missing from the calendar is KindInvalidInput.
func (f Form) Request(hour int, loc *time.Location) (Request, error) {
	side := pricing.Call
	if f.Side != "" {
		s, err := pricing.ParseSide(f.Side)
		if err != nil {
			return Request{}, newError(KindInvalidInput, err)
		}
		side = s
	}

	exp, err := expiry.At(f.Year, f.Month, f.Day, hour, loc)
	if err != nil {
		return Request{}, newError(KindInvalidInput, err)
	}

	return Request{
		Ticker:           f.Ticker,
		Spot:             f.Spot,
		Strike:           f.Strike,
		Side:             side,
		Expiry:           exp,
		ManualVolatility: f.IV,
	}, nil
}
