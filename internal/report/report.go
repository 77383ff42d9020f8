// Package report renders premium estimates for people: currency and
// percentage formatting, a terminal table and a JSON view.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-premium/internal/estimator"
)

var hundred = decimal.NewFromInt(100)

// View is the display form of an estimate. Every figure is pre-formatted.
type View struct {
	Ticker       string `json:"ticker,omitempty"`
	Side         string `json:"side"`
	Spot         string `json:"spot"`
	Strike       string `json:"strike"`
	Expiry       string `json:"expiry"`
	Premium      string `json:"premium"`
	Volatility   string `json:"volatility"`
	Source       string `json:"volatility_source"`
	SourceTag    string `json:"volatility_source_tag"`
	RiskFreeRate string `json:"risk_free_rate"`
	Years        string `json:"years_to_expiry"`
	TimeToExpiry string `json:"time_to_expiry"`
}

// Currency formats v as dollars with two decimals, e.g. "$6.71".
func Currency(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Percent formats a decimal fraction as a percentage with two decimals,
// e.g. 0.25 -> "25.00%".
func Percent(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}

// SourceTag is the label shown next to the volatility.
func SourceTag(s estimator.VolSource) string {
	if s == estimator.VolSourceMarket {
		return "(from market data)"
	}
	return "(manual input)"
}

// NewView formats res for display.
func NewView(res *estimator.Result) View {
	c := res.Contract
	return View{
		Ticker:       res.Ticker,
		Side:         c.Side.String(),
		Spot:         Currency(c.Spot),
		Strike:       Currency(c.Strike),
		Expiry:       res.Expiry.Format(time.RFC3339),
		Premium:      Currency(res.Premium),
		Volatility:   Percent(res.Volatility),
		Source:       res.Source.String(),
		SourceTag:    SourceTag(res.Source),
		RiskFreeRate: Percent(c.Rate),
		Years:        fmt.Sprintf("%.6f", res.Years),
		TimeToExpiry: res.Breakdown.String(),
	}
}

// Summary returns the three result lines:
//
//	Call Premium: $6.71
//	IV: 25.00% (manual input)
//	Time to Expiry: 30d 0h 0m 0s
func Summary(res *estimator.Result) []string {
	v := NewView(res)
	return []string{
		fmt.Sprintf("%s Premium: %s", res.Contract.Side.Title(), v.Premium),
		fmt.Sprintf("IV: %s %s", v.Volatility, v.SourceTag),
		fmt.Sprintf("Time to Expiry: %s", v.TimeToExpiry),
	}
}

// WriteText writes the summary lines followed by a table of the inputs.
func WriteText(w io.Writer, res *estimator.Result) error {
	v := NewView(res)
	lines := Summary(res)

	success := color.New(color.FgGreen, color.Bold).SprintFunc()
	if _, err := fmt.Fprintln(w, success(lines[0])); err != nil {
		return err
	}
	for _, l := range lines[1:] {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	rows := [][]string{
		{"Ticker", v.Ticker},
		{"Side", v.Side},
		{"Spot", v.Spot},
		{"Strike", v.Strike},
		{"Expiry", v.Expiry},
		{"Risk-free rate", v.RiskFreeRate},
		{"Years to expiry", v.Years},
	}
	table.AppendBulk(rows)
	table.Render()
	return nil
}

// WriteError writes a user-facing rejection in red.
func WriteError(w io.Writer, err error) {
	fmt.Fprintln(w, color.RedString("Error: %v", err))
}

// WriteJSON writes the view as indented JSON.
func WriteJSON(w io.Writer, res *estimator.Result) error {
	b, err := json.MarshalIndent(NewView(res), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
