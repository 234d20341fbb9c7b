package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"movers/internal/config"
	"movers/internal/domain"
	"movers/internal/snapshot"
	"movers/internal/store"
)

var capturedAt = time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC)

func seededServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	records, err := store.NewSQLiteStore(filepath.Join(dir, "movers.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { records.Close() })
	snapshots := store.NewParquetStore(dir)

	table := domain.Table{
		{RowIndex: 0, Quote: domain.Quote{Symbol: "LOW", Name: "Low Co", Price: 5, PctChange: 1.5, CapturedAt: capturedAt}},
		{RowIndex: 1, Quote: domain.Quote{Symbol: "HIGH", Name: "High Co", Price: 9, PctChange: 8.25, CapturedAt: capturedAt}},
	}
	ctx := context.Background()
	if err := records.SaveTable(ctx, "gainers", table); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}
	if _, err := snapshots.AppendSnapshot(ctx, "gainers", snapshot.RankTop(table, 0)); err != nil {
		t.Fatalf("AppendSnapshot: %v", err)
	}

	sources := []config.Source{
		{Name: "gainers", URL: "https://quotes.test/gainers"},
		{Name: "losers", URL: "https://quotes.test/losers"},
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(NewStoreProvider(sources, snapshots, records), quiet).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, want %d: %s", url, resp.StatusCode, wantStatus, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
}

func TestHandleSources(t *testing.T) {
	srv := seededServer(t)
	var resp SourcesResponse
	getJSON(t, srv.URL+"/api/sources", http.StatusOK, &resp)
	if len(resp.Sources) != 2 || resp.Sources[0].Name != "gainers" {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestHandleLatest(t *testing.T) {
	srv := seededServer(t)
	var resp LatestResponse
	getJSON(t, srv.URL+"/api/gainers/latest", http.StatusOK, &resp)

	if resp.Count != 2 || resp.Rows[0].Symbol != "HIGH" || resp.Rows[0].Rank != 0 {
		t.Errorf("latest = %+v", resp)
	}
	if !resp.CapturedAt.Equal(capturedAt) {
		t.Errorf("capturedAt = %v, want %v", resp.CapturedAt, capturedAt)
	}

	getJSON(t, srv.URL+"/api/losers/latest", http.StatusNotFound, nil)
	getJSON(t, srv.URL+"/api/nope/latest", http.StatusNotFound, nil)
}

func TestHandleHistory(t *testing.T) {
	srv := seededServer(t)

	var latest HistoryResponse
	getJSON(t, srv.URL+"/api/gainers/history", http.StatusOK, &latest)
	if latest.Date != "2024-06-14" || latest.Count != 2 {
		t.Errorf("history = %+v", latest)
	}
	if latest.Entries[1].Seq != 1 || latest.Entries[1].Symbol != "LOW" {
		t.Errorf("entry 1 = %+v", latest.Entries[1])
	}

	var byDate HistoryResponse
	getJSON(t, srv.URL+"/api/gainers/history/2024-06-14", http.StatusOK, &byDate)
	if byDate.Count != 2 {
		t.Errorf("count = %d, want 2", byDate.Count)
	}

	var empty HistoryResponse
	getJSON(t, srv.URL+"/api/gainers/history/2024-06-13", http.StatusOK, &empty)
	if empty.Count != 0 || empty.Entries == nil {
		t.Errorf("empty day = %+v", empty)
	}

	getJSON(t, srv.URL+"/api/gainers/history/june", http.StatusBadRequest, nil)
	getJSON(t, srv.URL+"/api/losers/history", http.StatusNotFound, nil)
}

func TestHandleDates(t *testing.T) {
	srv := seededServer(t)
	var resp DatesResponse
	getJSON(t, srv.URL+"/api/gainers/dates", http.StatusOK, &resp)
	if len(resp.Dates) != 1 || resp.Dates[0] != "2024-06-14" {
		t.Errorf("dates = %v", resp.Dates)
	}

	var none DatesResponse
	getJSON(t, srv.URL+"/api/losers/dates", http.StatusOK, &none)
	if none.Dates == nil || len(none.Dates) != 0 {
		t.Errorf("losers dates = %v, want empty list", none.Dates)
	}
}

func TestHandleRecords(t *testing.T) {
	srv := seededServer(t)
	var resp SymbolResponse
	getJSON(t, srv.URL+"/api/records?symbol=high", http.StatusOK, &resp)
	if resp.Symbol != "HIGH" || len(resp.Records) != 1 || resp.Records[0].Source != "gainers" {
		t.Errorf("records = %+v", resp)
	}

	getJSON(t, srv.URL+"/api/records?symbol=ZZZ", http.StatusNotFound, nil)
	getJSON(t, srv.URL+"/api/records", http.StatusBadRequest, nil)
	getJSON(t, srv.URL+"/api/records?symbol=HIGH&limit=x", http.StatusBadRequest, nil)
}

func TestCORSPreflight(t *testing.T) {
	srv := seededServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/sources", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
