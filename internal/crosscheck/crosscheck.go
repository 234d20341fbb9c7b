// Package crosscheck compares scraped prices against an independent market
// data feed and reports symbols whose prices disagree.
package crosscheck

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"movers/internal/domain"
	"movers/internal/snapshot"
)

// QuoteSource returns the latest traded price for each symbol. Symbols the
// source does not know are omitted from the result.
type QuoteSource interface {
	LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// AlpacaQuotes is a QuoteSource backed by the Alpaca market-data API.
type AlpacaQuotes struct {
	client *marketdata.Client
	feed   string
}

// NewAlpacaQuotes creates an Alpaca-backed QuoteSource. An empty dataURL
// uses the library default; an empty feed uses "iex".
func NewAlpacaQuotes(apiKey, apiSecret, dataURL, feed string) *AlpacaQuotes {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaQuotes{client: marketdata.NewClient(opts), feed: feed}
}

// LatestPrices fetches the latest trade for every symbol in one request.
func (a *AlpacaQuotes) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trades, err := a.client.GetLatestTrades(symbols, marketdata.GetLatestTradeRequest{
		Feed: marketdata.Feed(a.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca latest trades: %w", err)
	}
	prices := make(map[string]float64, len(trades))
	for sym, t := range trades {
		prices[sym] = t.Price
	}
	return prices, nil
}

// Deviation is a symbol whose scraped price differs from the reference
// price by more than the checker's tolerance.
type Deviation struct {
	Symbol    string  `json:"symbol"`
	Scraped   float64 `json:"scraped"`
	Reference float64 `json:"reference"`
	DiffPct   float64 `json:"diffPct"`
}

// Checker cross-checks ranked views against a QuoteSource.
type Checker struct {
	source       QuoteSource
	tolerancePct float64
	log          *slog.Logger
}

// NewChecker returns a Checker flagging differences above tolerancePct
// percent. A non-positive tolerance defaults to 2%.
func NewChecker(source QuoteSource, tolerancePct float64, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	if tolerancePct <= 0 {
		tolerancePct = 2
	}
	return &Checker{source: source, tolerancePct: tolerancePct, log: log.With("component", "crosscheck")}
}

// Check compares every priced row of view with the reference feed and
// returns the deviations, in rank order. Failures of the feed are logged
// and yield no deviations.
func (c *Checker) Check(ctx context.Context, view domain.RankedView) []Deviation {
	symbols := snapshot.Symbols(view)
	if len(symbols) == 0 {
		return nil
	}
	ref, err := c.source.LatestPrices(ctx, symbols)
	if err != nil {
		c.log.Warn("reference prices unavailable", "symbols", len(symbols), "error", err)
		return nil
	}

	var out []Deviation
	seen := make(map[string]bool, len(view))
	for _, r := range view {
		if seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		want, ok := ref[r.Symbol]
		if !ok || want <= 0 || r.Price <= 0 {
			continue
		}
		diff := math.Abs(r.Price-want) / want * 100
		if diff <= c.tolerancePct {
			continue
		}
		d := Deviation{Symbol: r.Symbol, Scraped: r.Price, Reference: want, DiffPct: diff}
		c.log.Warn("price deviation", "symbol", d.Symbol, "scraped", d.Scraped, "reference", d.Reference, "diff_pct", d.DiffPct)
		out = append(out, d)
	}
	return out
}
