package usecases

import (
	"errors"

	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/report"
)

// ErrNoRun is returned when a report is requested before any log was checked.
var ErrNoRun = errors.New("no log has been checked yet")

// RunSource provides the latest checked run.
type RunSource interface {
	Last() (report.Context, bool)
}

// RenderReportUseCase renders reports for checked logs.
type RenderReportUseCase struct {
	registry *report.Registry
	runs     RunSource
}

// NewRenderReportUseCase creates a new use case.
func NewRenderReportUseCase(registry *report.Registry, runs RunSource) *RenderReportUseCase {
	return &RenderReportUseCase{registry: registry, runs: runs}
}

// Execute renders the latest run with engine. An empty source selects the
// engine's built-in template.
func (uc *RenderReportUseCase) Execute(engine, name, source string) ([]byte, error) {
	ctx, ok := uc.runs.Last()
	if !ok {
		return nil, ErrNoRun
	}
	return uc.Render(engine, name, source, ctx)
}

// Render renders an explicit report context.
func (uc *RenderReportUseCase) Render(engine, name, source string, ctx report.Context) ([]byte, error) {
	return uc.registry.Render(engine, name, source, ctx)
}

// Latest returns the latest run's report context.
func (uc *RenderReportUseCase) Latest() (report.Context, error) {
	ctx, ok := uc.runs.Last()
	if !ok {
		return report.Context{}, ErrNoRun
	}
	return ctx, nil
}
