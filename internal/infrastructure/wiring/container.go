package wiring

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sophialabs/declarecheck/internal/domain/checker"
	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/domain/history"
	inboundhttp "github.com/sophialabs/declarecheck/internal/infrastructure/inbound/http"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/condition"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/eventlog"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/report"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
	"github.com/sophialabs/declarecheck/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	ModelDir       string
	HistorySize    int
	RateLimit      float64 // checks per second per client, 0 = unlimited
	RateBurst      int
	RateLimiterTTL time.Duration
	Workers        int
	CacheSize      int    // compiled condition cache entries
	TracesPath     string // JSONPath of the trace array in JSON logs
	DefaultEngine  string // "expr" or "jinja2"
	Logger         ports.Logger
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger           ports.Logger
	server           *inboundhttp.Server
	aggregator       *services.Aggregator
	loadUC           *usecases.LoadModelUseCase
	checkLogUC       *usecases.CheckLogUseCase
	queryUC          *usecases.QueryLogUseCase
	reportUC         *usecases.RenderReportUseCase
	rateLimiterStore *ratelimit.TokenBucketStore
	history          *history.RingBuffer
	jsonReader       *eventlog.JSONReader
	xesReader        *eventlog.XESReader
	closeOnce        sync.Once
}

// New constructs all infrastructure components. Fallible operations (repository)
// run before goroutine-starting operations (rate limiter store) to
// avoid goroutine leaks on early failure.
func New(p Params) (*Container, error) {
	if _, err := os.Stat(p.ModelDir); err != nil {
		return nil, fmt.Errorf("failed to access model directory: %w", err)
	}

	repo, err := filesystem.NewYAMLRepository(p.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	registry := report.NewRegistry()
	if p.DefaultEngine != "" {
		if _, err := registry.Compile(p.DefaultEngine, "default", ""); err != nil {
			return nil, fmt.Errorf("invalid default report engine: %w", err)
		}
	}

	clk := clock.New()
	// Start background goroutine only after all fallible ops succeed.
	rateLimiterStore := ratelimit.NewTokenBucketStore(
		ratelimit.Limit{Rate: p.RateLimit, Burst: p.RateBurst}, p.RateLimiterTTL, clk)

	hist := history.NewRingBuffer(p.HistorySize)
	evaluator := condition.NewEvaluator(p.CacheSize)
	compiler := services.NewCompiler()
	chk := checker.New(evaluator)
	aggregator := services.NewAggregator(chk, p.Logger)
	queryChecker := services.NewQueryChecker(chk, compiler, p.Logger)

	loadUC := usecases.NewLoadModelUseCase(repo, compiler, aggregator, p.Logger)
	checkTraceUC := usecases.NewCheckTraceUseCase(aggregator, clk, rateLimiterStore, p.Logger, hist)
	checkLogUC := usecases.NewCheckLogUseCase(aggregator, clk, p.Logger, hist, p.Workers)
	queryUC := usecases.NewQueryLogUseCase(queryChecker, clk, p.Logger, hist, p.Workers)
	saveUC := usecases.NewSaveConstraintUseCase(repo, filesystem.DecodeConstraint, compiler, evaluator, p.Logger)
	deleteUC := usecases.NewDeleteConstraintUseCase(repo, p.Logger)
	reportUC := usecases.NewRenderReportUseCase(registry, checkLogUC)

	jsonReader := eventlog.NewJSONReader(p.TracesPath)
	xesReader := eventlog.NewXESReader()

	server := inboundhttp.NewServer(checkTraceUC, checkLogUC, loadUC, aggregator, hist, p.Logger)
	server.SetCRUDDeps(saveUC, deleteUC, repo, p.ModelDir)
	server.SetReportDeps(reportUC, p.DefaultEngine)
	server.SetLogReaders(jsonReader, xesReader)
	server.SetQueryDeps(queryUC)

	return &Container{
		logger:           p.Logger,
		server:           server,
		aggregator:       aggregator,
		loadUC:           loadUC,
		checkLogUC:       checkLogUC,
		queryUC:          queryUC,
		reportUC:         reportUC,
		rateLimiterStore: rateLimiterStore,
		history:          hist,
		jsonReader:       jsonReader,
		xesReader:        xesReader,
	}, nil
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.rateLimiterStore.Stop()
	})
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Server returns the HTTP API server.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// Aggregator returns the shared result aggregator.
func (c *Container) Aggregator() *services.Aggregator {
	return c.aggregator
}

// LoadModelUseCase returns the use case for loading and compiling the model.
func (c *Container) LoadModelUseCase() *usecases.LoadModelUseCase {
	return c.loadUC
}

// CheckLogUseCase returns the use case for checking whole logs.
func (c *Container) CheckLogUseCase() *usecases.CheckLogUseCase {
	return c.checkLogUC
}

// QueryLogUseCase returns the use case for query checking.
func (c *Container) QueryLogUseCase() *usecases.QueryLogUseCase {
	return c.queryUC
}

// RenderReportUseCase returns the report use case.
func (c *Container) RenderReportUseCase() *usecases.RenderReportUseCase {
	return c.reportUC
}

// RateLimiterStore returns the token bucket store for rate limiting.
func (c *Container) RateLimiterStore() *ratelimit.TokenBucketStore {
	return c.rateLimiterStore
}

// History returns the check history buffer.
func (c *Container) History() *history.RingBuffer {
	return c.history
}

// Reader returns the log reader for format.
func (c *Container) Reader(format services.LogFormat) declare.LogReader {
	if format == services.FormatXES {
		return c.xesReader
	}
	return c.jsonReader
}
