// Package domain defines the core types shared across the scraping, storage,
// and presentation layers: normalized quote records, snapshot tables, ranked
// views, and the rolling history built from them.
package domain

import (
	"fmt"
	"time"
)

// Scale tags the magnitude suffix a market-cap value was quoted with.
type Scale string

const (
	ScaleTrillions Scale = "Trillions"
	ScaleBillions  Scale = "Billions"
	ScaleMillions  Scale = "Millions"
	ScaleUnknown   Scale = "Unknown"
)

// Letter returns the suffix letter for the scale ("T", "B", "M"), or "" for
// ScaleUnknown.
func (s Scale) Letter() string {
	switch s {
	case ScaleTrillions:
		return "T"
	case ScaleBillions:
		return "B"
	case ScaleMillions:
		return "M"
	default:
		return ""
	}
}

// Multiplier returns the factor that converts a scaled value to units.
func (s Scale) Multiplier() float64 {
	switch s {
	case ScaleTrillions:
		return 1e12
	case ScaleBillions:
		return 1e9
	case ScaleMillions:
		return 1e6
	default:
		return 1
	}
}

// ParseScale maps a stored scale name back to a Scale. Unrecognised names
// map to ScaleUnknown.
func ParseScale(name string) Scale {
	switch Scale(name) {
	case ScaleTrillions, ScaleBillions, ScaleMillions:
		return Scale(name)
	default:
		return ScaleUnknown
	}
}

// Sign records an explicit sign seen during extraction, either as a dedicated
// "+"/"-" token or as a leading character on the value itself.
type Sign int8

const (
	SignNone  Sign = 0
	SignPlus  Sign = 1
	SignMinus Sign = -1
)

// Apply returns v with the sign applied. SignNone leaves v unchanged.
func (s Sign) Apply(v float64) float64 {
	if s == SignMinus {
		return -v
	}
	return v
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

// Quote holds the normalized fields of one scraped instrument row.
type Quote struct {
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	Change         float64   `json:"change"`
	PctChange      float64   `json:"pctChange"` // percent units, 5.2 == 5.2%
	Volume         float64   `json:"volume"`
	AvgVolume      float64   `json:"avgVolume"`
	MarketCap      float64   `json:"marketCap"` // in MarketCapScale units
	MarketCapScale Scale     `json:"marketCapScale"`
	PERatio        *float64  `json:"peRatio,omitempty"` // nil when not available
	CapturedAt     time.Time `json:"capturedAt"`
}

// DisplaySymbol returns the symbol left-justified to a width of 6.
func (q Quote) DisplaySymbol() string {
	return fmt.Sprintf("%-6s", q.Symbol)
}

// DisplayName returns the company name left-justified to a width of 60.
func (q Quote) DisplayName() string {
	return fmt.Sprintf("%-60s", q.Name)
}

// MarketCapUnits returns the market cap expanded to plain units.
func (q Quote) MarketCapUnits() float64 {
	return q.MarketCap * q.MarketCapScale.Multiplier()
}

// Record is one row of a snapshot table. RowIndex counts successfully
// inserted rows, so it is contiguous from 0 even when source rows are dropped.
type Record struct {
	RowIndex int `json:"row"`
	Quote
}

// Table is the full normalized result of one extraction pass.
type Table []Record

// RankedRecord is a Record re-indexed by its position in a ranked view.
type RankedRecord struct {
	Rank int `json:"rank"`
	Quote
}

// RankedView is a table ordered by percent change, highest first.
type RankedView []RankedRecord

// HistoryEntry is a ranked record appended to the rolling history. Seq is
// re-assigned across the whole history on every append.
type HistoryEntry struct {
	Seq int `json:"seq"`
	RankedRecord
}

// History is the concatenation of ranked views over time.
type History []HistoryEntry

// Snapshot pairs a ranked view with the source and moment it was taken.
type Snapshot struct {
	Source     string     `json:"source"`
	CapturedAt time.Time  `json:"capturedAt"`
	Rows       RankedView `json:"rows"`
}
