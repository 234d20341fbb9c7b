// Package snapshot reduces a pass's table into a ranked view and keeps the
// rolling history of ranked views.
package snapshot

import (
	"cmp"
	"slices"

	"movers/internal/domain"
)

// RankTop returns the n records with the highest percent change, ordered
// descending. Equal percent changes keep their table order. n is clamped to
// the table length; n <= 0 ranks the whole table.
func RankTop(table domain.Table, n int) domain.RankedView {
	sorted := SortByPct(table)
	if n <= 0 || n > len(sorted) {
		n = len(sorted)
	}

	view := make(domain.RankedView, n)
	for i := range n {
		view[i] = domain.RankedRecord{Rank: i, Quote: sorted[i].Quote}
	}
	return view
}

// SortByPct returns a copy of table stably sorted by percent change,
// highest first. Row indexes are left as assigned at extraction.
func SortByPct(table domain.Table) domain.Table {
	sorted := slices.Clone(table)
	slices.SortStableFunc(sorted, func(a, b domain.Record) int {
		return cmp.Compare(b.PctChange, a.PctChange)
	})
	return sorted
}

// AppendHistory returns a new history holding history followed by view,
// with Seq renumbered from 0 across the whole result. Neither input is
// modified.
func AppendHistory(history domain.History, view domain.RankedView) domain.History {
	out := make(domain.History, 0, len(history)+len(view))
	for _, e := range history {
		e.Seq = len(out)
		out = append(out, e)
	}
	for _, r := range view {
		out = append(out, domain.HistoryEntry{Seq: len(out), RankedRecord: r})
	}
	return out
}

// Symbols returns the distinct symbols of view in rank order.
func Symbols(view domain.RankedView) []string {
	seen := make(map[string]bool, len(view))
	syms := make([]string, 0, len(view))
	for _, r := range view {
		if r.Symbol == "" || seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		syms = append(syms, r.Symbol)
	}
	return syms
}
