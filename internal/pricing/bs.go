package pricing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesPrice calculates the price of a European option using the Black-Scholes model
// without dividend yield.
//
// Parameters:
//   - side: Call or Put
//   - S: spot price of the underlying asset
//   - K: strike price of the option
//   - T: time to expiry in years
//   - r: risk-free interest rate (annual)
//   - sigma: volatility of the underlying asset (annual, as a decimal)
//
// Returns:
//
//	The theoretical premium. T and sigma must both be positive; the caller
//	validates them. Non-positive values make the formula divide by zero and
//	the result is NaN or ±Inf. The result is not clamped, so extreme inputs
//	can produce a tiny negative value from floating-point error.
func BlackScholesPrice(
	side Side,
	S float64, // spot
	K float64, // strike
	T float64, // time to expiry in years
	r float64, // risk-free rate
	sigma float64, // volatility
) float64 {

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discount := K * math.Exp(-r*T)

	if side == Call {
		return S*normCDF(d1) - discount*normCDF(d2)
	}
	return discount*normCDF(-d2) - S*normCDF(-d1)
}

// BlackScholesVega calculates the vega of a European option using the Black-Scholes model.
// Vega is identical for calls and puts.
//
// Returns 0 if T or sigma is non-positive.
func BlackScholesVega(S, K, T, r, sigma float64) float64 {
	if T <= 0 || sigma <= 0 {
		return 0
	}

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	return S * normPDF(d1) * math.Sqrt(T)
}

// ImpliedVolatility solves for the volatility that reproduces marketPrice with
// Newton-Raphson, starting at 20% and bounded to (0, 5].
// Returns an error if inputs are invalid or the iteration does not converge.
func ImpliedVolatility(side Side, S, K, T, r, marketPrice float64) (float64, error) {
	if T <= 0 {
		return 0, fmt.Errorf("invalid expiry")
	}
	if S <= 0 || K <= 0 || marketPrice <= 0 {
		return 0, fmt.Errorf("invalid inputs: spot=%.4f strike=%.4f price=%.4f", S, K, marketPrice)
	}

	sigma := 0.20

	const (
		maxIter = 100
		tol     = 1e-6
	)

	for i := 0; i < maxIter; i++ {
		diff := BlackScholesPrice(side, S, K, T, r, sigma) - marketPrice
		if math.Abs(diff) < tol {
			return sigma, nil
		}

		vega := BlackScholesVega(S, K, T, r, sigma)
		if vega < 1e-8 {
			break
		}

		sigma -= diff / vega

		// Guardrails
		if sigma <= 0 {
			sigma = 1e-4
		}
		if sigma > 5 {
			sigma = 5
		}
	}

	return 0, fmt.Errorf("implied vol did not converge")
}

// normPDF is the standard normal probability density.
func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// normCDF is the standard normal cumulative distribution function Φ.
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}
