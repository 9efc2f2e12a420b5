package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/domain/history"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/report"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

// CheckLogRequest is a whole log submitted for checking.
type CheckLogRequest struct {
	Client   string
	Log      *declare.Log
	Done     bool
	Workers  int
	Progress func()
}

// CheckLogResult is the outcome of a log-wide run.
type CheckLogResult struct {
	ID        string                       `json:"id"`
	Done      bool                         `json:"done"`
	Results   declare.LogResult            `json:"results"`
	Summary   []services.ConstraintSummary `json:"summary"`
	Malformed []string                     `json:"malformed"`
	Started   time.Time                    `json:"started"`
	Elapsed   time.Duration                `json:"elapsed_ns"`
}

// CheckLogUseCase checks whole logs and remembers the latest run for
// reporting.
type CheckLogUseCase struct {
	aggregator *services.Aggregator
	clock      ports.Clock
	logger     ports.Logger
	history    *history.RingBuffer
	workers    int

	mu   sync.Mutex
	last *report.Context
}

// NewCheckLogUseCase creates a new use case. workers is the default
// concurrency for requests that do not set their own.
func NewCheckLogUseCase(aggregator *services.Aggregator, clock ports.Clock, logger ports.Logger, hist *history.RingBuffer, workers int) *CheckLogUseCase {
	return &CheckLogUseCase{
		aggregator: aggregator,
		clock:      clock,
		logger:     logger,
		history:    hist,
		workers:    workers,
	}
}

// Execute checks every trace of req.Log against m.
func (uc *CheckLogUseCase) Execute(ctx context.Context, m *services.Model, req CheckLogRequest) (CheckLogResult, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = uc.workers
	}

	started := uc.clock.Now()
	id := uuid.NewString()
	uc.logger.Info("checking log", "id", id, "traces", len(req.Log.Traces), "constraints", m.Len(), "workers", workers)

	res, err := uc.aggregator.CheckLog(ctx, req.Log, req.Done, m, services.LogOptions{
		Workers:  workers,
		Progress: req.Progress,
	})
	if err != nil {
		return CheckLogResult{}, fmt.Errorf("failed to check log: %w", err)
	}

	result := CheckLogResult{
		ID:        id,
		Done:      req.Done,
		Results:   res,
		Summary:   services.Summarize(m, res),
		Malformed: logOmitted(m, res),
		Started:   started,
		Elapsed:   uc.clock.Now().Sub(started),
	}

	states := make(map[string]int)
	for _, tr := range res {
		for state, n := range tr.StateCounts() {
			states[state.String()] += n
		}
	}
	uc.history.Add(history.Entry{
		ID:          id,
		Timestamp:   started,
		Kind:        history.KindLog,
		Client:      req.Client,
		Done:        req.Done,
		Traces:      len(req.Log.Traces),
		Constraints: m.Len(),
		States:      states,
		Malformed:   result.Malformed,
	})

	rc := report.Build(id, started, req.Done, m, res, result.Malformed)
	uc.mu.Lock()
	uc.last = &rc
	uc.mu.Unlock()

	uc.logger.Info("log checked", "id", id, "elapsed", result.Elapsed, "malformed", len(result.Malformed))
	return result, nil
}

// Last returns the report context of the most recent successful run.
func (uc *CheckLogUseCase) Last() (report.Context, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.last == nil {
		return report.Context{}, false
	}
	return *uc.last, true
}

// logOmitted lists, in model order, the constraints missing from at least
// one trace result.
func logOmitted(m *services.Model, res declare.LogResult) []string {
	out := []string{}
	for _, key := range m.Keys() {
		for _, tr := range res {
			if _, ok := tr[key]; !ok {
				out = append(out, key)
				break
			}
		}
	}
	return out
}
