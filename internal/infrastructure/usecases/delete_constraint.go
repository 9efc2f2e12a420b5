package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
)

// DeleteConstraintUseCase removes a constraint from its source file.
type DeleteConstraintUseCase struct {
	repo   declare.Repository
	logger ports.Logger
}

// NewDeleteConstraintUseCase creates a new use case.
func NewDeleteConstraintUseCase(repo declare.Repository, logger ports.Logger) *DeleteConstraintUseCase {
	return &DeleteConstraintUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute removes the constraint with the given ID.
func (uc *DeleteConstraintUseCase) Execute(ctx context.Context, id string) error {
	existing, err := uc.repo.LoadByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find constraint %q: %w", id, err)
	}

	if err := uc.repo.DeleteConstraint(ctx, existing.SourceFile, existing.SourceIndex); err != nil {
		return fmt.Errorf("failed to delete constraint %q: %w", id, err)
	}

	uc.logger.Info("constraint deleted", "id", id)
	return nil
}
