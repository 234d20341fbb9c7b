package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"movers/internal/domain"
	"movers/internal/snapshot"
)

// Compile-time interface check.
var _ SnapshotStore = (*ParquetStore)(nil)

// ParquetStore implements SnapshotStore using one Parquet file per source
// and day.
type ParquetStore struct {
	DataDir string

	mu sync.Mutex // serialises read-merge-write of history files
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// HistoryRecord is the Parquet schema for one ranked history entry.
type HistoryRecord struct {
	Seq            int64   `parquet:"seq"`
	Rank           int64   `parquet:"rank"`
	Symbol         string  `parquet:"symbol"`
	Name           string  `parquet:"name"`
	Price          float64 `parquet:"price"`
	Change         float64 `parquet:"change"`
	PctChange      float64 `parquet:"pct_change"`
	Volume         float64 `parquet:"volume"`
	AvgVolume      float64 `parquet:"avg_volume"`
	MarketCap      float64 `parquet:"market_cap"`
	MarketCapScale string  `parquet:"market_cap_scale"`
	PERatio        float64 `parquet:"pe_ratio"`
	HasPERatio     bool    `parquet:"has_pe_ratio"`
	CapturedAt     int64   `parquet:"captured_at,timestamp(millisecond)"` // Unix ms
}

func toHistoryRecord(e domain.HistoryEntry) HistoryRecord {
	r := HistoryRecord{
		Seq:            int64(e.Seq),
		Rank:           int64(e.Rank),
		Symbol:         e.Symbol,
		Name:           e.Name,
		Price:          e.Price,
		Change:         e.Change,
		PctChange:      e.PctChange,
		Volume:         e.Volume,
		AvgVolume:      e.AvgVolume,
		MarketCap:      e.MarketCap,
		MarketCapScale: string(e.MarketCapScale),
		CapturedAt:     e.CapturedAt.UnixMilli(),
	}
	if e.PERatio != nil {
		r.PERatio = *e.PERatio
		r.HasPERatio = true
	}
	return r
}

func fromHistoryRecord(r HistoryRecord) domain.HistoryEntry {
	q := domain.Quote{
		Symbol:         r.Symbol,
		Name:           r.Name,
		Price:          r.Price,
		Change:         r.Change,
		PctChange:      r.PctChange,
		Volume:         r.Volume,
		AvgVolume:      r.AvgVolume,
		MarketCap:      r.MarketCap,
		MarketCapScale: domain.ParseScale(r.MarketCapScale),
		CapturedAt:     time.UnixMilli(r.CapturedAt),
	}
	if r.HasPERatio {
		pe := r.PERatio
		q.PERatio = &pe
	}
	return domain.HistoryEntry{
		Seq:          int(r.Seq),
		RankedRecord: domain.RankedRecord{Rank: int(r.Rank), Quote: q},
	}
}

// ---------------------------------------------------------------------------
// SnapshotStore implementation
// ---------------------------------------------------------------------------

// AppendSnapshot merges view into the history file for its capture date:
//
//	<DataDir>/<source>/history/<YYYY-MM-DD>.parquet
func (s *ParquetStore) AppendSnapshot(_ context.Context, source string, view domain.RankedView) (domain.History, error) {
	if len(view) == 0 {
		return nil, nil
	}
	date := view[0].CapturedAt.Format("2006-01-02")
	path := s.historyPath(source, date)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readHistoryFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history %s/%s: %w", source, date, err)
	}
	history := snapshot.AppendHistory(existing, view)

	records := make([]HistoryRecord, len(history))
	for i, e := range history {
		records[i] = toHistoryRecord(e)
	}
	if err := writeParquetFile(path, records); err != nil {
		return nil, fmt.Errorf("writing history %s/%s: %w", source, date, err)
	}
	return history, nil
}

// ReadHistory returns the stored history for source on date. A missing
// file yields an empty history.
func (s *ParquetStore) ReadHistory(_ context.Context, source, date string) (domain.History, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readHistoryFile(s.historyPath(source, date))
}

// ListDates lists the dates that have history for source.
func (s *ParquetStore) ListDates(_ context.Context, source string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, strings.ToLower(source), "history"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".parquet"))
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *ParquetStore) readHistoryFile(path string) (domain.History, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	records, err := readParquetFile[HistoryRecord](path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	history := make(domain.History, len(records))
	for i, r := range records {
		history[i] = fromHistoryRecord(r)
	}
	return history, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// historyPath returns the filesystem path for a history Parquet file.
// Layout: <dataDir>/<source>/history/<YYYY-MM-DD>.parquet
func (s *ParquetStore) historyPath(source, date string) string {
	return filepath.Join(s.DataDir, strings.ToLower(source), "history", date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
