package gather

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"movers/internal/config"
	"movers/internal/domain"
	"movers/internal/snapshot"
	"movers/internal/util"
)

// WatchOptions configures a Watcher.
type WatchOptions struct {
	Interval time.Duration
	Cycles   int                            // 0 runs until ctx is cancelled
	Calendar *util.TradingCalendar          // when set, passes only run while the market is open
	OnPass   func(*Result)                  // called after every successful pass
	OnError  func(source string, err error) // called when a pass fails
}

// Watcher repeats passes over a set of sources and keeps the latest
// snapshot and rolling history of each in memory.
type Watcher struct {
	pass    *Pass
	sources []config.Source
	opts    WatchOptions
	log     *slog.Logger

	mu      sync.RWMutex
	latest  map[string]domain.Snapshot
	history map[string]domain.History
}

var _ Gatherer = (*Watcher)(nil)

// NewWatcher creates a Watcher. A non-positive interval defaults to one
// minute.
func NewWatcher(pass *Pass, sources []config.Source, opts WatchOptions) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Watcher{
		pass:    pass,
		sources: sources,
		opts:    opts,
		log:     pass.logger().With("gatherer", "watch"),
		latest:  make(map[string]domain.Snapshot),
		history: make(map[string]domain.History),
	}
}

// Name implements Gatherer.
func (w *Watcher) Name() string { return "watch" }

// Run performs passes until the configured cycle count is reached or ctx
// is cancelled. A failed pass is logged and does not stop the loop.
// Cycles skipped because the market is closed are not counted.
func (w *Watcher) Run(ctx context.Context) error {
	for done := 0; w.opts.Cycles == 0 || done < w.opts.Cycles; {
		if w.opts.Calendar != nil && !w.opts.Calendar.IsMarketOpen(w.pass.now()) {
			w.log.Debug("market closed, waiting",
				"next_open", w.opts.Calendar.NextOpen(w.pass.now()).Format(time.RFC3339))
			if !w.sleep(ctx) {
				return nil
			}
			continue
		}

		w.cycle(ctx)
		done++
		w.log.Info("cycle complete", "cycle", done, "of", w.opts.Cycles)

		if w.opts.Cycles != 0 && done >= w.opts.Cycles {
			break
		}
		if !w.sleep(ctx) {
			return nil
		}
	}
	return nil
}

func (w *Watcher) cycle(ctx context.Context) {
	for _, src := range w.sources {
		if ctx.Err() != nil {
			return
		}
		res, err := w.pass.Run(ctx, src)
		if res == nil {
			w.log.Warn("pass failed", "source", src.Name, "error", err)
			if w.opts.OnError != nil {
				w.opts.OnError(src.Name, err)
			}
			continue
		}
		if err != nil {
			w.log.Warn("pass not persisted", "source", src.Name, "error", err)
		}
		w.record(res)
		if w.opts.OnPass != nil {
			w.opts.OnPass(res)
		}
	}
}

func (w *Watcher) record(res *Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.latest[res.Source] = res.Snapshot()
	w.history[res.Source] = snapshot.AppendHistory(w.history[res.Source], res.View)
}

// sleep waits one interval and reports whether ctx is still live.
func (w *Watcher) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.opts.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Latest returns the most recent snapshot taken of source.
func (w *Watcher) Latest(source string) (domain.Snapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.latest[source]
	return s, ok
}

// History returns the in-memory history accumulated for source.
func (w *Watcher) History(source string) domain.History {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.history[source]
}
