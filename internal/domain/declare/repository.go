package declare

import (
	"context"
	"io"
)

// Repository is the port for loading and persisting constraint models.
type Repository interface {
	// LoadAll loads every constraint from the configured root directory,
	// in file order and then declaration order.
	LoadAll(ctx context.Context) ([]*Constraint, error)

	// LoadByID loads a single constraint by its ID.
	// Returns ErrNotFound if no constraint has the given ID.
	LoadByID(ctx context.Context, id string) (*Constraint, error)

	// SaveConstraint writes constraint YAML content to disk.
	// If the constraint has a SourceFile, the existing entry is replaced.
	// Otherwise a new file is created.
	SaveConstraint(ctx context.Context, c *Constraint, yamlContent []byte) error

	// DeleteConstraint removes a constraint from its source file.
	// Single-constraint files are deleted; sequence entries are removed.
	DeleteConstraint(ctx context.Context, sourceFile string, sourceIndex int) error

	// ReadSourceYAML reads the raw YAML of a constraint from its source file.
	ReadSourceYAML(ctx context.Context, c *Constraint) ([]byte, error)
}

// LogReader is the port for decoding event logs.
type LogReader interface {
	ReadLog(ctx context.Context, r io.Reader) (*Log, error)
}
