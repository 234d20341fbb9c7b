package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"movers/internal/dashboard"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		source string
		date   string
		list   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored history of a source",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.selectSources(source, false); err != nil {
				return err
			}
			if err := a.openStores(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			dates, err := a.snapshots.ListDates(ctx, source)
			if err != nil {
				return err
			}
			if list {
				for _, d := range dates {
					fmt.Fprintln(out, d)
				}
				return nil
			}
			if date == "" {
				if len(dates) == 0 {
					return fmt.Errorf("no history stored for %s", source)
				}
				date = dates[len(dates)-1]
			}

			h, err := a.snapshots.ReadHistory(ctx, source, date)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(h)
			}
			dashboard.RenderHistory(out, h, dashboard.Options{
				Title: fmt.Sprintf("%s history %s (%d entries)", source, date, len(h)),
				Color: true,
			})
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "gainers", "source to show")
	cmd.Flags().StringVarP(&date, "date", "d", "", "day to show, YYYY-MM-DD (default: latest)")
	cmd.Flags().BoolVar(&list, "list", false, "list the days with stored history")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print history as JSON")
	return cmd
}
