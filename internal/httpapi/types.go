// Package httpapi provides an HTTP REST API serving the stored snapshots,
// histories, and records of every configured source in JSON format.
package httpapi

import (
	"time"

	"movers/internal/domain"
	"movers/internal/store"
)

// SourceJSON describes a configured screener source.
type SourceJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SourcesResponse is the response for GET /api/sources.
type SourcesResponse struct {
	Sources []SourceJSON `json:"sources"`
}

// LatestResponse is the response for GET /api/{source}/latest.
type LatestResponse struct {
	Source     string            `json:"source"`
	CapturedAt time.Time         `json:"capturedAt"`
	Count      int               `json:"count"`
	Rows       domain.RankedView `json:"rows"`
}

// HistoryResponse is the response for the history endpoints.
type HistoryResponse struct {
	Source  string         `json:"source"`
	Date    string         `json:"date"`
	Count   int            `json:"count"`
	Entries domain.History `json:"entries"`
}

// DatesResponse is the response for GET /api/{source}/dates.
type DatesResponse struct {
	Source string   `json:"source"`
	Dates  []string `json:"dates"`
}

// SymbolResponse is the response for GET /api/records?symbol=.
type SymbolResponse struct {
	Symbol  string                `json:"symbol"`
	Records []store.SourcedRecord `json:"records"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
