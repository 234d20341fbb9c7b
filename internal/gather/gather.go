// Package gather drives scrape passes: one Pass fetches a screener page,
// extracts and ranks its table, and persists the result; a Watcher repeats
// passes over every configured source on an interval.
package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"movers/internal/config"
	"movers/internal/crosscheck"
	"movers/internal/domain"
	"movers/internal/extract"
	"movers/internal/fetch"
	"movers/internal/parse"
	"movers/internal/snapshot"
	"movers/internal/store"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run starts the data gathering process. It blocks until ctx is cancelled
	// or the gatherer has nothing left to do.
	Run(ctx context.Context) error
}

// PageFetcher retrieves a page. *fetch.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, target, referer string) (*fetch.Page, error)
}

// Pass runs one scrape of a source. Only Fetcher is required; nil stores
// and a nil Checker are skipped.
type Pass struct {
	Fetcher   PageFetcher
	Backends  []parse.Backend // nil means parse.Default("")
	Schema    extract.Schema  // nil means extract.DefaultSchema
	TopN      int             // rows kept in the ranked view; 0 keeps all
	Snapshots store.SnapshotStore
	Records   store.RecordStore
	Checker   *crosscheck.Checker
	Now       func() time.Time
	Log       *slog.Logger
}

// Result is the outcome of one pass.
type Result struct {
	Source     string
	Page       *fetch.Page
	Backend    string // parse backend that located the table
	Table      domain.Table
	View       domain.RankedView
	History    domain.History // stored history for the day, when persisted
	Deviations []crosscheck.Deviation
	CapturedAt time.Time
}

// Snapshot returns the ranked view tagged with its source and time.
func (r *Result) Snapshot() domain.Snapshot {
	return domain.Snapshot{Source: r.Source, CapturedAt: r.CapturedAt, Rows: r.View}
}

func (p *Pass) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pass) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// Run fetches src, extracts its table, ranks it, and stores the result.
// Fetch and locate failures abort the pass; rows that fail extraction are
// dropped. A storage failure is returned together with the partial result.
func (p *Pass) Run(ctx context.Context, src config.Source) (*Result, error) {
	log := p.logger().With("source", src.Name)

	page, err := p.Fetcher.Fetch(ctx, src.URL, src.Referer)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.Name, err)
	}

	backends := p.Backends
	if len(backends) == 0 {
		backends = parse.Default("")
	}
	body, backend, err := parse.Select(page.HTML, backends...)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", src.Name, err)
	}

	now := p.now()
	table := extract.ExtractAndNormalize(body, p.Schema, now, log)
	res := &Result{
		Source:     src.Name,
		Page:       page,
		Backend:    backend,
		Table:      table,
		View:       snapshot.RankTop(table, p.TopN),
		CapturedAt: now,
	}
	log.Info("pass complete",
		"backend", backend,
		"rendered", page.Rendered,
		"rows", len(table),
		"fetch_time", page.FetchTime,
	)

	if p.Records != nil {
		if err := p.Records.SaveTable(ctx, src.Name, table); err != nil {
			return res, fmt.Errorf("saving %s table: %w", src.Name, err)
		}
	}
	if p.Snapshots != nil && len(res.View) > 0 {
		h, err := p.Snapshots.AppendSnapshot(ctx, src.Name, res.View)
		if err != nil {
			return res, fmt.Errorf("appending %s history: %w", src.Name, err)
		}
		res.History = h
	}
	if p.Checker != nil {
		res.Deviations = p.Checker.Check(ctx, res.View)
	}
	return res, nil
}
