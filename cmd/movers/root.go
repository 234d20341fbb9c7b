package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"movers/internal/config"
	"movers/internal/crosscheck"
	"movers/internal/fetch"
	"movers/internal/gather"
	"movers/internal/parse"
	"movers/internal/store"
	"movers/internal/util"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg *config.Config
	log *slog.Logger

	snapshots *store.ParquetStore
	records   *store.SQLiteStore
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	a := &app{}

	root := &cobra.Command{
		Use:           "movers",
		Short:         "Scrape, rank, and store the market's top gainers and losers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a.cfg = cfg
			a.log = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			util.SetDefault(a.log)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.records != nil {
				return a.records.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("MOVERS_CONFIG"),
		"path to YAML config (default: built-in sources, env MOVERS_CONFIG)")

	root.AddCommand(
		newScrapeCmd(a),
		newWatchCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
	)
	return root
}

// openStores opens the parquet history and sqlite record stores under the
// configured data directory.
func (a *app) openStores() error {
	if a.snapshots != nil {
		return nil
	}
	dir := a.cfg.Storage.DataDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	dbPath := a.cfg.Storage.SQLitePath
	if dbPath == "" {
		dbPath = filepath.Join(dir, "movers.db")
	}
	records, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	a.records = records
	a.snapshots = store.NewParquetStore(dir)
	return nil
}

// newPass wires a scrape pass from the configuration. persist selects
// whether results are written to the stores.
func (a *app) newPass(persist bool) (*gather.Pass, *fetch.Fetcher, error) {
	cfg := a.cfg
	client := fetch.NewClient(fetch.Options{
		UserAgent:       cfg.Fetch.UserAgent,
		Timeout:         cfg.Fetch.Timeout(),
		Retries:         cfg.Fetch.Retries,
		RateLimitPerMin: cfg.Fetch.RateLimitPerMin,
		CookieURL:       cfg.Fetch.CookieURL,
	}, a.log)

	var renderer fetch.PageRenderer
	if cfg.Render.Enabled {
		renderer = fetch.NewRenderer(cfg.Render.ChromePath, cfg.Fetch.UserAgent)
	}
	fetcher := fetch.NewFetcher(client, renderer, fetch.RenderPolicy{
		Enabled:        cfg.Render.Enabled,
		Attempts:       cfg.Render.Attempts,
		InitialTimeout: cfg.Render.InitialTimeout(),
		Factor:         cfg.Render.Factor,
	}, a.log)

	pass := &gather.Pass{
		Fetcher:  fetcher,
		Backends: parse.Default(cfg.Parse.TableSelector),
		Log:      a.log,
	}
	if persist {
		if err := a.openStores(); err != nil {
			return nil, nil, err
		}
		pass.Snapshots = a.snapshots
		pass.Records = a.records
	}
	if cfg.Alpaca.APIKey != "" {
		quotes := crosscheck.NewAlpacaQuotes(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed)
		pass.Checker = crosscheck.NewChecker(quotes, cfg.Alpaca.TolerancePct, a.log)
	}
	return pass, fetcher, nil
}

// selectSources resolves --source/--all into configured sources.
func (a *app) selectSources(name string, all bool) ([]config.Source, error) {
	if all {
		return a.cfg.Sources, nil
	}
	src, ok := a.cfg.Source(name)
	if !ok {
		return nil, fmt.Errorf("unknown source %q (configured: %v)", name, a.cfg.SourceNames())
	}
	return []config.Source{src}, nil
}
