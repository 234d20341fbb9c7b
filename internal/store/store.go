// Package store defines storage interfaces for persisting scrape results:
// the rolling history of ranked snapshots and the full per-pass tables.
package store

import (
	"context"
	"errors"

	"movers/internal/domain"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// SnapshotStore persists ranked views as a per-day rolling history.
type SnapshotStore interface {
	// AppendSnapshot appends view to the source's history for the view's
	// capture date and returns the updated history for that date.
	AppendSnapshot(ctx context.Context, source string, view domain.RankedView) (domain.History, error)

	// ReadHistory returns the source's history for date (YYYY-MM-DD).
	ReadHistory(ctx context.Context, source, date string) (domain.History, error)

	// ListDates returns the dates with stored history for source, ascending.
	ListDates(ctx context.Context, source string) ([]string, error)
}

// RecordStore persists the full normalized table of each pass.
type RecordStore interface {
	// SaveTable stores table as one pass for source.
	SaveTable(ctx context.Context, source string, table domain.Table) error

	// LatestTable returns the most recent pass stored for source. It
	// returns ErrNotFound when source has no passes.
	LatestTable(ctx context.Context, source string) (domain.Table, error)

	// SymbolRecords returns every stored record for symbol across sources,
	// newest first, up to limit.
	SymbolRecords(ctx context.Context, symbol string, limit int) ([]SourcedRecord, error)
}

// SourcedRecord is a stored record tagged with the source it came from.
type SourcedRecord struct {
	Source string `json:"source"`
	domain.Record
}
