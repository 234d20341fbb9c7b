package main

import (
	"github.com/spf13/cobra"

	"movers/internal/gather"
	"movers/internal/health"
	"movers/internal/httpapi"
	"movers/internal/util"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		serve  bool
		quiet  bool
		cycles int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scrape every configured source on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, fetcher, err := a.newPass(true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			fetcher.Prime(ctx)

			opts := gather.WatchOptions{
				Interval: a.cfg.Watch.Interval(),
				Cycles:   a.cfg.Watch.Cycles,
			}
			if cmd.Flags().Changed("cycles") {
				opts.Cycles = cycles
			}
			if a.cfg.Watch.MarketHoursOnly {
				opts.Calendar = util.NewTradingCalendar()
			}
			if !quiet {
				out := cmd.OutOrStdout()
				opts.OnPass = func(res *gather.Result) { printResult(out, res, false) }
			}

			if addr := a.cfg.Server.GRPCAddr; addr != "" {
				reporter := health.NewReporter(a.cfg.SourceNames(), a.log)
				onPass := opts.OnPass
				opts.OnPass = func(res *gather.Result) {
					reporter.PassSucceeded(res.Source)
					if onPass != nil {
						onPass(res)
					}
				}
				opts.OnError = reporter.PassFailed
				go func() {
					if err := reporter.Serve(ctx, addr); err != nil {
						a.log.Error("grpc health stopped", "error", err)
					}
				}()
			}

			if serve {
				srv := httpapi.NewServer(httpapi.NewStoreProvider(a.cfg.Sources, a.snapshots, a.records), a.log)
				go func() {
					if err := srv.Serve(ctx, a.cfg.Server.Addr); err != nil {
						a.log.Error("http api stopped", "error", err)
					}
				}()
			}

			w := gather.NewWatcher(pass, a.cfg.Sources, opts)
			a.log.Info("starting gatherer", "name", w.Name(), "sources", a.cfg.SourceNames(),
				"interval", opts.Interval, "cycles", opts.Cycles)
			return w.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the HTTP API while watching")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print tables after each pass")
	cmd.Flags().IntVar(&cycles, "cycles", 0, "number of cycles (overrides config; 0 runs until interrupted)")
	return cmd
}
