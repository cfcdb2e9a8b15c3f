package utils

import (
	"time"
)

// ET is the US Eastern market time location.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		ET = time.FixedZone("ET", -5*60*60)
	}
}

// NowET returns the current time in US Eastern time.
func NowET() time.Time {
	return time.Now().In(ET)
}

// ToET converts a time.Time to US Eastern time.
func ToET(t time.Time) time.Time {
	return t.In(ET)
}

// MarketOpenTime returns the session opening time (9:30 AM ET) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, ET)
}

// MarketCloseTime returns the session closing time (4:00 PM ET) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, ET)
}

// IsMarketOpen checks if the synthetic market session is currently open.
func IsMarketOpen() bool {
	return IsMarketOpenAt(NowET())
}

// IsMarketOpenAt checks if the session would be open at the given time.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(ET)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}

	open := MarketOpenTime(t)
	close := MarketCloseTime(t)

	return !t.Before(open) && !t.After(close)
}

// IsTradingDay checks if the given date is a trading day. The synthetic
// exchange observes no holidays, so every weekday trades. The date is read in
// t's own location; callers pass calendar dates and expect no zone shifting.
func IsTradingDay(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}

// NextTradingDay returns the next trading day after the given date.
func NextTradingDay(from time.Time) time.Time {
	next := from.AddDate(0, 0, 1)
	for !IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PrevTradingDay returns the trading day before the given date.
func PrevTradingDay(from time.Time) time.Time {
	prev := from.AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// LastTradingDayOnOrBefore returns t if it is a trading day, otherwise the
// nearest trading day before it.
func LastTradingDayOnOrBefore(t time.Time) time.Time {
	for !IsTradingDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// TradingDaysBetween returns the number of trading days between two dates
// (exclusive of end).
func TradingDaysBetween(start, end time.Time) int {
	count := 0
	current := start
	for current.Before(end) {
		if IsTradingDay(current) {
			count++
		}
		current = current.AddDate(0, 0, 1)
	}
	return count
}

// ParseDate parses a date string in "2006-01-02" format as a UTC calendar date.
func ParseDate(dateStr string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, dateStr, time.UTC)
}

// FormatDate formats a time.Time to "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// FormatDateTime formats a time.Time to "2006-01-02 15:04:05 MST" in ET.
func FormatDateTime(t time.Time) string {
	return t.In(ET).Format("2006-01-02 15:04:05 MST")
}

// MarketStatus returns the current session status string.
func MarketStatus() string {
	return MarketStatusAt(NowET())
}

// MarketStatusAt returns the session status string for the given time.
func MarketStatusAt(t time.Time) string {
	t = t.In(ET)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}

	open := MarketOpenTime(t)
	close := MarketCloseTime(t)

	switch {
	case t.Before(open):
		return "PRE-MARKET"
	case !t.After(close):
		return "OPEN"
	default:
		return "CLOSED"
	}
}
