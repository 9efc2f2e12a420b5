package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/domain/history"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

// QueryLogRequest asks which constraints matching Query a log satisfies.
type QueryLogRequest struct {
	Client   string
	Log      *declare.Log
	Query    services.Query
	Workers  int
	Progress func()
}

// QueryLogResult is the outcome of a query run.
type QueryLogResult struct {
	ID     string `json:"id"`
	Traces int    `json:"traces"`
	services.QueryResult
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// QueryLogUseCase runs query checks over whole logs. It does not depend on
// the loaded model.
type QueryLogUseCase struct {
	checker *services.QueryChecker
	clock   ports.Clock
	logger  ports.Logger
	history *history.RingBuffer
	workers int
}

// NewQueryLogUseCase creates a new use case. workers is the default
// concurrency for requests that do not set their own.
func NewQueryLogUseCase(checker *services.QueryChecker, clock ports.Clock, logger ports.Logger, hist *history.RingBuffer, workers int) *QueryLogUseCase {
	return &QueryLogUseCase{
		checker: checker,
		clock:   clock,
		logger:  logger,
		history: hist,
		workers: workers,
	}
}

// Execute runs req.Query over req.Log.
func (uc *QueryLogUseCase) Execute(ctx context.Context, req QueryLogRequest) (QueryLogResult, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = uc.workers
	}

	started := uc.clock.Now()
	id := uuid.NewString()
	uc.logger.Info("querying log", "id", id, "traces", len(req.Log.Traces), "activities", len(req.Log.Activities()))

	res, err := uc.checker.Run(ctx, req.Log, req.Query, services.LogOptions{
		Workers:  workers,
		Progress: req.Progress,
	})
	if err != nil {
		return QueryLogResult{}, fmt.Errorf("failed to query log: %w", err)
	}

	result := QueryLogResult{
		ID:          id,
		Traces:      len(req.Log.Traces),
		QueryResult: res,
		Started:     started,
		Elapsed:     uc.clock.Now().Sub(started),
	}
	// Totals count verdicts only; query entries carry none.
	uc.history.Add(history.Entry{
		ID:          id,
		Timestamp:   started,
		Kind:        history.KindQuery,
		Client:      req.Client,
		Done:        true,
		Traces:      len(req.Log.Traces),
		Constraints: res.Candidates,
		Malformed:   res.Malformed,
	})

	uc.logger.Info("log queried", "id", id, "candidates", res.Candidates, "matches", len(res.Matches), "elapsed", result.Elapsed)
	return result, nil
}
