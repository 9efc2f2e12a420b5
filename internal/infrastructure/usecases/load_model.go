package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

// LoadModelUseCase loads all constraints and compiles them into a model.
type LoadModelUseCase struct {
	repo       declare.Repository
	compiler   *services.Compiler
	aggregator *services.Aggregator
	logger     ports.Logger
}

// NewLoadModelUseCase creates a new use case.
func NewLoadModelUseCase(repo declare.Repository, compiler *services.Compiler, aggregator *services.Aggregator, logger ports.Logger) *LoadModelUseCase {
	return &LoadModelUseCase{
		repo:       repo,
		compiler:   compiler,
		aggregator: aggregator,
		logger:     logger,
	}
}

// Execute loads and compiles the model. Any configuration error fails the
// whole load. On success the malformed-constraint diagnostics are reset,
// since they refer to the previous model.
func (uc *LoadModelUseCase) Execute(ctx context.Context) (*services.Model, error) {
	constraints, err := uc.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load constraints: %w", err)
	}

	uc.logger.Info("loaded constraints from repository", "count", len(constraints))

	model, err := uc.compiler.Compile(constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to compile model: %w", err)
	}
	for _, key := range model.Keys() {
		uc.logger.Debug("compiled constraint", "key", key)
	}

	uc.aggregator.ResetMalformed()

	uc.logger.Info("model compiled", "constraints", model.Len(), "activities", len(model.Activities()))
	return model, nil
}
