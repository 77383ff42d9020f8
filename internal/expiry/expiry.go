// Package expiry converts an option expiry instant into the time-to-expiry
// figures consumed by the pricing engine and the display layer.
package expiry

import (
	"fmt"
	"time"
)

const (
	// SecondsPerYear uses a 365-day year with no leap-year adjustment.
	SecondsPerYear = 365 * 24 * 3600

	secondsPerDay    = 86400
	secondsPerHour   = 3600
	secondsPerMinute = 60

	// DefaultHour is the market-close hour options are assumed to expire at.
	DefaultHour = 15
)

// ExpiryBreakdown is a remaining duration split into display units.
type ExpiryBreakdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// YearsUntil returns the fractional years between now and expiry.
// The result is zero or negative when expiry is not in the future; callers
// must reject that before pricing.
func YearsUntil(expiry, now time.Time) float64 {
	return expiry.Sub(now).Seconds() / SecondsPerYear
}

// Breakdown splits the whole seconds remaining until expiry into days, hours,
// minutes and seconds.
//
// Breakdown is only meaningful for expiry at or after now. A negative
// duration returns the zero value.
func Breakdown(expiry, now time.Time) ExpiryBreakdown {
	total := int64(expiry.Sub(now) / time.Second)
	if total < 0 {
		return ExpiryBreakdown{}
	}

	return ExpiryBreakdown{
		Days:    total / secondsPerDay,
		Hours:   (total % secondsPerDay) / secondsPerHour,
		Minutes: (total % secondsPerHour) / secondsPerMinute,
		Seconds: total % secondsPerMinute,
	}
}

// TotalSeconds recomposes the breakdown into whole seconds.
func (b ExpiryBreakdown) TotalSeconds() int64 {
	return b.Days*secondsPerDay + b.Hours*secondsPerHour + b.Minutes*secondsPerMinute + b.Seconds
}

// String renders the breakdown as "{days}d {hours}h {minutes}m {seconds}s".
func (b ExpiryBreakdown) String() string {
	return fmt.Sprintf("%dd %dh %dm %ds", b.Days, b.Hours, b.Minutes, b.Seconds)
}

// At builds the expiry instant for a calendar date at the given hour in loc.
// Dates that do not exist on the calendar (e.g. February 30) are rejected
// instead of being normalised into the following month.
func At(year, month, day, hour int, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", month)
	}
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("hour %d out of range", hour)
	}

	t := time.Date(year, time.Month(month), day, hour, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("day is out of range for month: %04d-%02d-%02d", year, month, day)
	}
	return t, nil
}
