package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ck-zhang/runner/internal/entry"
)

var ErrAlreadyStarted = errors.New("aggregator already started")

// Result is one completed scan. Err is set when the scanner failed; Entries
// is then empty.
type Result struct {
	Kind    entry.Kind
	Entries []entry.Entry
	Err     error
	Elapsed time.Duration
}

// Aggregator runs each scanner once on its own goroutine and delivers the
// results on a single channel in completion order.
type Aggregator struct {
	group    string
	scanners []Scanner
	log      *slog.Logger
	started  atomic.Bool
}

func NewAggregator(group string, scanners []Scanner, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{group: group, scanners: scanners, log: log.With("component", "source")}
}

// Start launches every scan. The channel has room for every result so a
// scanner never waits on the consumer; it is closed after the last result.
func (a *Aggregator) Start(ctx context.Context) (<-chan Result, error) {
	if !a.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	results := make(chan Result, len(a.scanners))
	var g errgroup.Group
	for _, s := range a.scanners {
		g.Go(func() error {
			results <- a.run(ctx, s)
			// Failures travel inside the Result; the group never cancels.
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()
	return results, nil
}

func (a *Aggregator) run(ctx context.Context, s Scanner) (res Result) {
	kind := s.Kind()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{Kind: kind, Err: fmt.Errorf("%s scanner panicked: %v", kind, r)}
		}
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			a.log.Warn("scan failed", "kind", kind.String(), "err", res.Err, "elapsed", res.Elapsed)
			return
		}
		a.log.Debug("scan finished", "kind", kind.String(), "entries", len(res.Entries), "elapsed", res.Elapsed)
	}()

	entries, err := s.Scan(ctx)
	if err != nil {
		return Result{Kind: kind, Err: err}
	}
	entries = entry.Dedup(entries)
	for i := range entries {
		entries[i].Kind = kind
		entries[i].Group = a.group
		entries[i].Seq = i
	}
	return Result{Kind: kind, Entries: entries}
}

// Collect starts the scans and waits for all of them, merging into one
// catalog. It serves the non-interactive listing.
func (a *Aggregator) Collect(ctx context.Context) (*entry.Catalog, error) {
	ch, err := a.Start(ctx)
	if err != nil {
		return nil, err
	}
	cat := entry.NewCatalog()
	for res := range ch {
		if res.Err != nil {
			continue
		}
		cat.Merge(res.Entries)
	}
	return cat, nil
}
