package util

import (
	"time"
	_ "time/tzdata" // exchange zone on hosts without a tz database
)

// TradingCalendar provides regular-session awareness for US equities
// (9:30-16:00 America/New_York, Monday to Friday). Exchange holidays are not
// modelled.
type TradingCalendar struct {
	loc   *time.Location
	open  time.Duration // offset from midnight
	close time.Duration
}

// NewTradingCalendar creates a TradingCalendar for the NYSE regular session.
func NewTradingCalendar() *TradingCalendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("ET", -5*60*60)
	}
	return &TradingCalendar{
		loc:   loc,
		open:  9*time.Hour + 30*time.Minute,
		close: 16 * time.Hour,
	}
}

// Location returns the exchange time zone.
func (tc *TradingCalendar) Location() *time.Location { return tc.loc }

// IsMarketOpen returns whether the regular session is open at time t.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	local := t.In(tc.loc)
	if !isWeekday(local) {
		return false
	}
	sinceMidnight := local.Sub(midnight(local))
	return sinceMidnight >= tc.open && sinceMidnight < tc.close
}

// NextOpen returns the next session open at or after t.
func (tc *TradingCalendar) NextOpen(t time.Time) time.Time {
	local := t.In(tc.loc)
	for day := midnight(local); ; day = day.AddDate(0, 0, 1) {
		open := day.Add(tc.open)
		if isWeekday(day) && !open.Before(local) {
			return open
		}
	}
}

// NextClose returns the next session close at or after t.
func (tc *TradingCalendar) NextClose(t time.Time) time.Time {
	local := t.In(tc.loc)
	for day := midnight(local); ; day = day.AddDate(0, 0, 1) {
		cl := day.Add(tc.close)
		if isWeekday(day) && !cl.Before(local) {
			return cl
		}
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
