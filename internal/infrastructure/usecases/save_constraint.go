package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
)

// ErrInvalidConstraint marks submitted constraint content that cannot be saved.
var ErrInvalidConstraint = errors.New("invalid constraint")

// ConstraintDecoder parses one constraint document.
type ConstraintDecoder func(data []byte) (*declare.Constraint, error)

// ConditionValidator checks that an expression is well formed.
type ConditionValidator interface {
	Validate(expression string) error
}

// SaveConstraintUseCase validates and saves a constraint's YAML content.
type SaveConstraintUseCase struct {
	repo      declare.Repository
	decode    ConstraintDecoder
	compiler  *services.Compiler
	validator ConditionValidator
	logger    ports.Logger
}

// NewSaveConstraintUseCase creates a new use case.
func NewSaveConstraintUseCase(
	repo declare.Repository,
	decode ConstraintDecoder,
	compiler *services.Compiler,
	validator ConditionValidator,
	logger ports.Logger,
) *SaveConstraintUseCase {
	return &SaveConstraintUseCase{
		repo:      repo,
		decode:    decode,
		compiler:  compiler,
		validator: validator,
		logger:    logger,
	}
}

// Execute saves the YAML content for the constraint identified by id.
// For existing constraints the source file is updated in place. For new
// constraints (id == "") the content must carry an id and a new file is
// created. The content is rejected with ErrInvalidConstraint if it does not
// compile or any of its conditions is malformed.
func (uc *SaveConstraintUseCase) Execute(ctx context.Context, id string, yamlContent []byte) (*declare.Constraint, error) {
	decoded, err := uc.decode(yamlContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConstraint, err)
	}
	compiled, err := uc.compiler.CompileConstraint(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConstraint, err)
	}
	for _, expression := range []string{compiled.Rules.Activation, compiled.Rules.Correlation, compiled.Rules.Time} {
		if err := uc.validator.Validate(expression); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConstraint, err)
		}
	}

	if id == "" {
		if decoded.ID == "" {
			return nil, fmt.Errorf("%w: new constraint YAML must contain an 'id' field", ErrInvalidConstraint)
		}
		_, err := uc.repo.LoadByID(ctx, decoded.ID)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: id %q", declare.ErrDuplicateConstraint, decoded.ID)
		case !errors.Is(err, declare.ErrNotFound):
			return nil, fmt.Errorf("failed to check constraint %q: %w", decoded.ID, err)
		}

		if err := uc.repo.SaveConstraint(ctx, &declare.Constraint{ID: decoded.ID}, yamlContent); err != nil {
			return nil, fmt.Errorf("failed to create constraint: %w", err)
		}
		uc.logger.Info("constraint created", "id", decoded.ID, "key", compiled.String())
		return compiled, nil
	}

	existing, err := uc.repo.LoadByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find constraint %q: %w", id, err)
	}

	if err := uc.repo.SaveConstraint(ctx, existing, yamlContent); err != nil {
		return nil, fmt.Errorf("failed to save constraint %q: %w", id, err)
	}
	uc.logger.Info("constraint updated", "id", id, "key", compiled.String())
	return compiled, nil
}
