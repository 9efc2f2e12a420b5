package usecases

import (
	"context"

	"github.com/google/uuid"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/domain/history"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

// CheckTraceRequest is one trace submitted for checking.
type CheckTraceRequest struct {
	Client string
	Trace  *declare.Trace
	Done   bool
}

// CheckTraceResult is the outcome of checking one trace.
type CheckTraceResult struct {
	ID          string              `json:"id"`
	CaseID      string              `json:"case_id,omitempty"`
	Done        bool                `json:"done"`
	Results     declare.TraceResult `json:"results"`
	Malformed   []string            `json:"malformed"`
	RateLimited bool                `json:"-"`
}

// CheckTraceUseCase checks single traces against the active model.
type CheckTraceUseCase struct {
	aggregator  *services.Aggregator
	clock       ports.Clock
	rateLimiter ports.RateLimiter
	logger      ports.Logger
	history     *history.RingBuffer
}

// NewCheckTraceUseCase creates a new use case.
func NewCheckTraceUseCase(
	aggregator *services.Aggregator,
	clock ports.Clock,
	rateLimiter ports.RateLimiter,
	logger ports.Logger,
	hist *history.RingBuffer,
) *CheckTraceUseCase {
	return &CheckTraceUseCase{
		aggregator:  aggregator,
		clock:       clock,
		rateLimiter: rateLimiter,
		logger:      logger,
		history:     hist,
	}
}

// Execute checks req.Trace against m. Rate-limited requests are recorded
// in the history but not checked.
func (uc *CheckTraceUseCase) Execute(ctx context.Context, m *services.Model, req CheckTraceRequest) CheckTraceResult {
	entry := history.Entry{
		ID:          uuid.NewString(),
		Timestamp:   uc.clock.Now(),
		Kind:        history.KindTrace,
		Client:      req.Client,
		CaseID:      req.Trace.CaseID(),
		Done:        req.Done,
		Traces:      1,
		Constraints: m.Len(),
	}
	result := CheckTraceResult{
		ID:     entry.ID,
		CaseID: entry.CaseID,
		Done:   req.Done,
	}

	if !uc.rateLimiter.Allow(ctx, req.Client) {
		uc.logger.Debug("rate limited", "client", req.Client)
		entry.RateLimited = true
		result.RateLimited = true
		uc.history.Add(entry)
		return result
	}

	result.Results = uc.aggregator.CheckTrace(req.Trace, req.Done, m)
	result.Malformed = omitted(m, result.Results)

	entry.States = stateNames(result.Results.StateCounts())
	entry.Malformed = result.Malformed
	uc.history.Add(entry)

	uc.logger.Debug("trace checked", "id", entry.ID, "case", entry.CaseID, "events", len(req.Trace.Events))
	return result
}

// omitted lists, in model order, the constraints of m without a verdict in res.
func omitted(m *services.Model, res declare.TraceResult) []string {
	out := []string{}
	for _, key := range m.Keys() {
		if _, ok := res[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}

func stateNames(counts map[declare.TraceState]int) map[string]int {
	out := make(map[string]int, len(counts))
	for state, n := range counts {
		out[state.String()] += n
	}
	return out
}
