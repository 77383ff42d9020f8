package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlackScholesPrice_ReferenceCase(t *testing.T) {
	// S=100, K=100, r=0.05, sigma=0.2, T=1
	call := BlackScholesPrice(Call, 100, 100, 1, 0.05, 0.2)
	put := BlackScholesPrice(Put, 100, 100, 1, 0.05, 0.2)

	assert.InDelta(t, 10.450583572185565, call, 1e-9)
	assert.InDelta(t, 5.573526022256971, put, 1e-9)
}

func TestBlackScholesPrice_EstimatorScenario(t *testing.T) {
	call := BlackScholesPrice(Call, 223.0, 222.5, 30.0/365.0, 0.01, 0.25)
	put := BlackScholesPrice(Put, 223.0, 222.5, 30.0/365.0, 0.01, 0.25)

	assert.Equal(t, 6.7124, math.Round(call*1e4)/1e4)
	assert.Equal(t, 6.0296, math.Round(put*1e4)/1e4)
}

func TestBlackScholesPrice_PutCallParity(t *testing.T) {
	cases := []struct {
		name              string
		S, K, T, r, sigma float64
	}{
		{"atm", 100, 100, 45.0 / 365.0, 0.03, 0.25},
		{"itm call", 150, 120, 0.5, 0.01, 0.4},
		{"otm call", 80, 120, 2, 0.05, 0.15},
		{"negative rate", 100, 95, 1, -0.005, 0.3},
		{"short dated", 223, 222.5, 1.0 / 365.0, 0.01, 0.25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			call := BlackScholesPrice(Call, tc.S, tc.K, tc.T, tc.r, tc.sigma)
			put := BlackScholesPrice(Put, tc.S, tc.K, tc.T, tc.r, tc.sigma)

			lhs := call - put
			rhs := tc.S - tc.K*math.Exp(-tc.r*tc.T)
			assert.InEpsilon(t, rhs, lhs, 1e-9, "put-call parity violated: LHS=%f RHS=%f", lhs, rhs)
		})
	}
}

func TestBlackScholesPrice_AtTheMoneyZeroRateSymmetry(t *testing.T) {
	call := BlackScholesPrice(Call, 100, 100, 0.5, 0, 0.3)
	put := BlackScholesPrice(Put, 100, 100, 0.5, 0, 0.3)

	assert.InDelta(t, call, put, 1e-12)
	assert.InDelta(t, 8.447002662322816, call, 1e-9)
}

func TestBlackScholesPrice_VanishingVolatility(t *testing.T) {
	const (
		T     = 0.5
		r     = 0.01
		sigma = 1e-8
	)

	t.Run("in the money call tends to intrinsic", func(t *testing.T) {
		call := BlackScholesPrice(Call, 110, 100, T, r, sigma)
		assert.InDelta(t, 110-100*math.Exp(-r*T), call, 1e-9)
	})

	t.Run("out of the money call tends to zero", func(t *testing.T) {
		call := BlackScholesPrice(Call, 90, 100, T, r, sigma)
		assert.InDelta(t, 0, call, 1e-9)
	})
}

func TestBlackScholesPrice_NonPositiveInputsAreUndefined(t *testing.T) {
	p := BlackScholesPrice(Call, 100, 100, 0, 0.01, 0.2)
	assert.True(t, math.IsNaN(p) || math.IsInf(p, 0), "expected NaN or Inf, got %f", p)

	p = BlackScholesPrice(Put, 100, 100, 0.5, 0.01, 0)
	assert.True(t, math.IsNaN(p) || math.IsInf(p, 0), "expected NaN or Inf, got %f", p)
}

func TestBlackScholesPrice_Deterministic(t *testing.T) {
	a := BlackScholesPrice(Put, 223, 222.5, 0.1, 0.01, 0.25)
	b := BlackScholesPrice(Put, 223, 222.5, 0.1, 0.01, 0.25)
	assert.Equal(t, a, b)
}

func TestBlackScholesVega(t *testing.T) {
	assert.Zero(t, BlackScholesVega(100, 100, 0, 0.01, 0.2))
	assert.Zero(t, BlackScholesVega(100, 100, 1, 0.01, 0))

	// bump-and-reprice check
	const h = 1e-5
	up := BlackScholesPrice(Call, 100, 100, 1, 0.05, 0.2+h)
	down := BlackScholesPrice(Call, 100, 100, 1, 0.05, 0.2-h)
	assert.InDelta(t, (up-down)/(2*h), BlackScholesVega(100, 100, 1, 0.05, 0.2), 1e-5)
}

func TestImpliedVolatility_RoundTrip(t *testing.T) {
	for _, side := range []Side{Call, Put} {
		t.Run(side.String(), func(t *testing.T) {
			price := BlackScholesPrice(side, 223, 222.5, 30.0/365.0, 0.01, 0.37)

			iv, err := ImpliedVolatility(side, 223, 222.5, 30.0/365.0, 0.01, price)
			require.NoError(t, err)
			assert.InDelta(t, 0.37, iv, 1e-5)
		})
	}
}

func TestImpliedVolatility_InvalidInputs(t *testing.T) {
	_, err := ImpliedVolatility(Call, 100, 100, 0, 0.01, 5)
	assert.Error(t, err)

	_, err = ImpliedVolatility(Call, 100, 100, 1, 0.01, 0)
	assert.Error(t, err)
}

func TestParseSide(t *testing.T) {
	cases := map[string]Side{"call": Call, "CALL": Call, " c ": Call, "put": Put, "Put": Put, "p": Put}
	for in, want := range cases {
		got, err := ParseSide(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSide("straddle")
	assert.Error(t, err)
}

func TestOptionContract_Price(t *testing.T) {
	c := OptionContract{Spot: 100, Strike: 100, Years: 1, Volatility: 0.2, Rate: 0.05, Side: Put}
	assert.InDelta(t, 5.573526022256971, c.Price(), 1e-9)
	assert.Equal(t, "Put", c.Side.Title())
}
