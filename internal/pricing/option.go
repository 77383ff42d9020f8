// Package pricing implements closed-form valuation of European options.
package pricing

import (
	"fmt"
	"strings"
)

// Side selects the call or put branch of the pricing formula.
type Side int

const (
	Call Side = iota
	Put
)

// ParseSide accepts "call", "put", "c" or "p" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return Call, fmt.Errorf("unknown option side %q", s)
}

func (s Side) String() string {
	if s == Put {
		return "put"
	}
	return "call"
}

// Title returns the capitalised side name used in display output.
func (s Side) Title() string {
	if s == Put {
		return "Put"
	}
	return "Call"
}

// MarshalText encodes the side as "call" or "put".
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a side with ParseSide.
func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// OptionContract holds the inputs of one European option valuation.
type OptionContract struct {
	Spot       float64 `json:"spot"`
	Strike     float64 `json:"strike"`
	Years      float64 `json:"years_to_expiry"`
	Volatility float64 `json:"volatility"`
	Rate       float64 `json:"risk_free_rate"`
	Side       Side    `json:"side"`
}

// Price evaluates the contract with BlackScholesPrice.
// Years and Volatility must be positive.
func (c OptionContract) Price() float64 {
	return BlackScholesPrice(c.Side, c.Spot, c.Strike, c.Years, c.Rate, c.Volatility)
}
