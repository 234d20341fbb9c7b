// Package dashboard renders scrape results as terminal tables.
package dashboard

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"movers/internal/domain"
)

// Options controls table rendering.
type Options struct {
	Color bool // colour positive/negative changes
	Title string
}

var quoteHeader = table.Row{"SYMBOL", "NAME", "PRICE", "CHANGE", "CHG%", "VOLUME", "AVG VOL", "MKT CAP", "P/E"}

func newWriter(w io.Writer, opts Options) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if opts.Color {
		tw.SetStyle(table.StyleColoredDark)
	} else {
		tw.SetStyle(table.StyleRounded)
	}
	tw.Style().Options.SeparateRows = false
	if opts.Title != "" {
		tw.SetTitle(opts.Title)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "PRICE", Align: text.AlignRight},
		{Name: "CHANGE", Align: text.AlignRight},
		{Name: "CHG%", Align: text.AlignRight},
		{Name: "VOLUME", Align: text.AlignRight},
		{Name: "AVG VOL", Align: text.AlignRight},
		{Name: "MKT CAP", Align: text.AlignRight},
		{Name: "P/E", Align: text.AlignRight},
	})
	return tw
}

func quoteCells(q domain.Quote, opts Options) table.Row {
	change, pct := FormatChange(q.Change), FormatPct(q.PctChange)
	if opts.Color {
		switch {
		case q.PctChange > 0:
			change, pct = text.FgGreen.Sprint(change), text.FgGreen.Sprint(pct)
		case q.PctChange < 0:
			change, pct = text.FgRed.Sprint(change), text.FgRed.Sprint(pct)
		}
	}
	return table.Row{
		q.DisplaySymbol(),
		q.DisplayName(),
		FormatPrice(q.Price),
		change,
		pct,
		FormatVolume(q.Volume),
		FormatVolume(q.AvgVolume),
		FormatMarketCap(q),
		FormatPE(q.PERatio),
	}
}

// RenderTable writes a pass's table in extraction order.
func RenderTable(w io.Writer, t domain.Table, opts Options) {
	tw := newWriter(w, opts)
	tw.AppendHeader(append(table.Row{"ROW"}, quoteHeader...))
	for _, r := range t {
		tw.AppendRow(append(table.Row{r.RowIndex}, quoteCells(r.Quote, opts)...))
	}
	tw.AppendFooter(table.Row{"", "ROWS", len(t)})
	tw.Render()
}

// RenderRanked writes a ranked view, highest percent change first.
func RenderRanked(w io.Writer, v domain.RankedView, opts Options) {
	tw := newWriter(w, opts)
	tw.AppendHeader(append(table.Row{"#"}, quoteHeader...))
	for _, r := range v {
		tw.AppendRow(append(table.Row{r.Rank + 1}, quoteCells(r.Quote, opts)...))
	}
	tw.Render()
}

// RenderHistory writes a rolling history with the capture time of each
// entry.
func RenderHistory(w io.Writer, h domain.History, opts Options) {
	tw := newWriter(w, opts)
	tw.AppendHeader(append(table.Row{"SEQ", "#", "CAPTURED"}, quoteHeader...))
	for _, e := range h {
		tw.AppendRow(append(table.Row{e.Seq, e.Rank + 1, FormatTime(e.CapturedAt, nil)}, quoteCells(e.Quote, opts)...))
	}
	tw.Render()
}
