package httpapi

import (
	"context"
	"errors"

	"movers/internal/config"
	"movers/internal/domain"
	"movers/internal/snapshot"
	"movers/internal/store"
)

// Provider supplies the data served by the API. Lookups that match nothing
// return store.ErrNotFound.
type Provider interface {
	Sources() []config.Source
	Latest(ctx context.Context, source string) (domain.Snapshot, error)
	History(ctx context.Context, source, date string) (domain.History, error)
	Dates(ctx context.Context, source string) ([]string, error)
	SymbolRecords(ctx context.Context, symbol string, limit int) ([]store.SourcedRecord, error)
}

// StoreProvider serves data straight from the snapshot and record stores.
type StoreProvider struct {
	sources   []config.Source
	snapshots store.SnapshotStore
	records   store.RecordStore
}

var _ Provider = (*StoreProvider)(nil)

// NewStoreProvider creates a Provider over the given stores.
func NewStoreProvider(sources []config.Source, snapshots store.SnapshotStore, records store.RecordStore) *StoreProvider {
	return &StoreProvider{sources: sources, snapshots: snapshots, records: records}
}

// Sources returns the configured sources.
func (p *StoreProvider) Sources() []config.Source { return p.sources }

// Latest ranks the most recent stored table of source.
func (p *StoreProvider) Latest(ctx context.Context, source string) (domain.Snapshot, error) {
	table, err := p.records.LatestTable(ctx, source)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap := domain.Snapshot{Source: source, Rows: snapshot.RankTop(table, 0)}
	if len(table) > 0 {
		snap.CapturedAt = table[0].CapturedAt
	}
	return snap, nil
}

// History returns the stored history of source for date (YYYY-MM-DD).
func (p *StoreProvider) History(ctx context.Context, source, date string) (domain.History, error) {
	return p.snapshots.ReadHistory(ctx, source, date)
}

// Dates lists the days with stored history for source.
func (p *StoreProvider) Dates(ctx context.Context, source string) ([]string, error) {
	return p.snapshots.ListDates(ctx, source)
}

// SymbolRecords returns the stored records of symbol across sources.
func (p *StoreProvider) SymbolRecords(ctx context.Context, symbol string, limit int) ([]store.SourcedRecord, error) {
	recs, err := p.records.SymbolRecords(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return recs, nil
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
