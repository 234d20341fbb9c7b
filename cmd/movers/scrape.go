package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"movers/internal/dashboard"
	"movers/internal/domain"
	"movers/internal/gather"
)

func newScrapeCmd(a *app) *cobra.Command {
	var (
		source  string
		all     bool
		asJSON  bool
		noStore bool
		raw     bool
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape pass and print the ranked view",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.selectSources(source, all)
			if err != nil {
				return err
			}
			pass, fetcher, err := a.newPass(!noStore)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			fetcher.Prime(ctx)

			var results []*gather.Result
			for _, src := range sources {
				res, err := pass.Run(ctx, src)
				if res == nil {
					return err
				}
				if err != nil {
					a.log.Warn("pass not persisted", "source", src.Name, "error", err)
				}
				results = append(results, res)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeSnapshots(out, results)
			}
			for _, res := range results {
				printResult(out, res, raw)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "gainers", "source to scrape")
	cmd.Flags().BoolVar(&all, "all", false, "scrape every configured source")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print snapshots as JSON")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not persist results")
	cmd.Flags().BoolVar(&raw, "table", false, "print rows in page order instead of ranked")
	return cmd
}

func writeSnapshots(w io.Writer, results []*gather.Result) error {
	snaps := make([]domain.Snapshot, len(results))
	for i, res := range results {
		snaps[i] = res.Snapshot()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snaps)
}

func printResult(w io.Writer, res *gather.Result, raw bool) {
	title := fmt.Sprintf("%s  %s  (%d rows via %s)",
		res.Source, dashboard.FormatTime(res.CapturedAt, nil), len(res.Table), res.Backend)
	opts := dashboard.Options{Title: title, Color: true}
	if raw {
		dashboard.RenderTable(w, res.Table, opts)
	} else {
		dashboard.RenderRanked(w, res.View, opts)
	}
	for _, d := range res.Deviations {
		fmt.Fprintf(w, "  price check: %s scraped %s, feed %s (%.1f%% off)\n",
			d.Symbol, dashboard.FormatPrice(d.Scraped), dashboard.FormatPrice(d.Reference), d.DiffPct)
	}
}
