package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sophialabs/declarecheck/internal/domain/checker"
	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
)

// Aggregator checks traces against a model and collects verdicts.
// Constraints whose conditions fail are omitted from results and reported
// once through Malformed.
type Aggregator struct {
	checker *checker.Checker
	logger  ports.Logger

	mu        sync.Mutex
	malformed map[string]bool
	order     []string
}

// LogOptions tunes a log-wide run.
type LogOptions struct {
	// Workers bounds the traces checked concurrently. Zero means GOMAXPROCS.
	Workers int
	// Progress, if set, is called once per checked trace. It must be safe
	// for concurrent use.
	Progress func()
}

// NewAggregator creates an Aggregator.
func NewAggregator(c *checker.Checker, logger ports.Logger) *Aggregator {
	return &Aggregator{
		checker:   c,
		logger:    logger,
		malformed: make(map[string]bool),
	}
}

// CheckTrace checks every constraint of m against t, in model order.
func (a *Aggregator) CheckTrace(t *declare.Trace, done bool, m *Model) declare.TraceResult {
	result := make(declare.TraceResult, m.Len())
	keys := m.Keys()
	for i, con := range m.Constraints() {
		res, err := a.checker.Check(t, done, con)
		if err != nil {
			if declare.IsConditionError(err) {
				a.markMalformed(keys[i], err)
			} else {
				a.logger.Error("constraint check failed", "constraint", keys[i], "error", err)
			}
			continue
		}
		result[keys[i]] = res
	}
	return result
}

// CheckLog checks every trace of l against m. Results are keyed by
// Log.TraceKeys.
func (a *Aggregator) CheckLog(ctx context.Context, l *declare.Log, done bool, m *Model, opts LogOptions) (declare.LogResult, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]declare.TraceResult, len(l.Traces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range l.Traces {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.CheckTrace(&l.Traces[i], done, m)
			if opts.Progress != nil {
				opts.Progress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("log check interrupted: %w", err)
	}
	// gctx is always cancelled once Wait returns; only the caller's
	// context tells whether the run was cut short.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("log check interrupted: %w", err)
	}

	out := make(declare.LogResult, len(results))
	for i, key := range l.TraceKeys() {
		out[key] = results[i]
	}
	return out, nil
}

// Malformed returns the canonical strings of constraints whose conditions
// failed, in the order they were first seen.
func (a *Aggregator) Malformed() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

// ResetMalformed clears the diagnostic set, e.g. after a model reload.
func (a *Aggregator) ResetMalformed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.malformed = make(map[string]bool)
	a.order = nil
}

func (a *Aggregator) markMalformed(key string, err error) {
	a.mu.Lock()
	seen := a.malformed[key]
	if !seen {
		a.malformed[key] = true
		a.order = append(a.order, key)
	}
	a.mu.Unlock()

	if !seen {
		a.logger.Warn("malformed constraint skipped", "constraint", key, "error", err)
	}
}
