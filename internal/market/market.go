// Package market derives open/closed state for Indian equity markets from
// wall-clock time. Trading window is Monday-Friday 09:15-15:30 exchange
// local time; no holiday calendar is consulted.
package market

import "time"

const (
	openHour    = 9
	openMinute  = 15
	closeHour   = 15
	closeMinute = 30
)

// Status is the derived market state exposed by the facade.
type Status struct {
	IsOpen        bool   `json:"is_open"`
	CurrentTime   string `json:"current_time"`
	MarketState   string `json:"market_state"`
	NextEvent     string `json:"next_event"`
	NextEventTime string `json:"next_event_time"`
	TradingHours  string `json:"trading_hours"`
	TradingDays   string `json:"trading_days"`
}

// IsOpen reports whether the market is open at t.
func IsOpen(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	open := at(t, openHour, openMinute)
	close := at(t, closeHour, closeMinute)
	return !t.Before(open) && !t.After(close)
}

// State returns "open" or "closed" for t.
func State(t time.Time) string {
	if IsOpen(t) {
		return "open"
	}
	return "closed"
}

// NextTransition returns the next open/close event after t and when it
// happens.
func NextTransition(t time.Time) (event string, when time.Time) {
	if IsOpen(t) {
		return "market_close", at(t, closeHour, closeMinute)
	}
	// Closed: next open is today (before the bell), or the next weekday.
	day := t
	if t.Weekday() != time.Saturday && t.Weekday() != time.Sunday && t.Before(at(t, openHour, openMinute)) {
		return "market_open", at(day, openHour, openMinute)
	}
	for {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			return "market_open", at(day, openHour, openMinute)
		}
	}
}

// CurrentStatus builds the full status record for t.
func CurrentStatus(t time.Time) Status {
	event, when := NextTransition(t)
	return Status{
		IsOpen:        IsOpen(t),
		CurrentTime:   t.Format(time.RFC3339),
		MarketState:   State(t),
		NextEvent:     event,
		NextEventTime: when.Format(time.RFC3339),
		TradingHours:  "9:15 AM - 3:30 PM IST",
		TradingDays:   "Monday - Friday",
	}
}

func at(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}
