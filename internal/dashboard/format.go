package dashboard

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"movers/internal/domain"
)

// FormatPrice formats a price with comma separators and two decimals, or
// "-" for zero.
func FormatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return humanize.FormatFloat("#,###.##", p)
}

// FormatChange formats an absolute change with an explicit sign.
func FormatChange(c float64) string {
	return fmt.Sprintf("%+.2f", c)
}

// FormatPct formats a percent change as "+X.XX%".
// Drops decimals for values >= 1000% to keep width compact.
func FormatPct(pct float64) string {
	if pct >= 1000 || pct <= -1000 {
		return fmt.Sprintf("%+.0f%%", pct)
	}
	return fmt.Sprintf("%+.2f%%", pct)
}

// FormatMarketCap formats a quote's market cap with its scale letter, e.g.
// "2.31B". Values with an unknown scale are printed in plain units with
// comma separators.
func FormatMarketCap(q domain.Quote) string {
	if q.MarketCap == 0 {
		return "-"
	}
	if l := q.MarketCapScale.Letter(); l != "" {
		return fmt.Sprintf("%.2f%s", q.MarketCap, l)
	}
	return humanize.Comma(int64(q.MarketCapUnits()))
}

// FormatVolume formats a share count with comma separators.
func FormatVolume(v float64) string {
	if v == 0 {
		return "-"
	}
	return humanize.Comma(int64(v))
}

// FormatPE formats a P/E ratio, or "N/A" when absent.
func FormatPE(pe *float64) string {
	if pe == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *pe)
}

// FormatTime formats a capture time in loc as "2006-01-02 15:04:05".
// A nil loc keeps the time's own location.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02 15:04:05")
}
