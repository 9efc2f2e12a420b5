package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
)

var _ declare.Repository = (*YAMLRepository)(nil)

// YAMLRepository loads constraint models from YAML files in a directory tree.
type YAMLRepository struct {
	rootDir  string
	resolver *IncludeResolver
}

// NewYAMLRepository creates a repository rooted at rootDir.
func NewYAMLRepository(rootDir string) (*YAMLRepository, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	return &YAMLRepository{
		rootDir:  absRoot,
		resolver: NewIncludeResolver(absRoot),
	}, nil
}

// RootDir returns the absolute model root.
func (r *YAMLRepository) RootDir() string {
	return r.rootDir
}

// LoadAll walks the root directory for .yaml files and returns parsed
// constraints in lexical file order, then declaration order.
func (r *YAMLRepository) LoadAll(_ context.Context) ([]*declare.Constraint, error) {
	var constraints []*declare.Constraint

	err := filepath.WalkDir(r.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Partials are only reachable through !include; dot files are
		// editor or atomic-write leftovers.
		name := d.Name()
		if !isYAMLFile(path) || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			return nil
		}

		loaded, err := r.loadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		constraints = append(constraints, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk model directory: %w", err)
	}

	return constraints, nil
}

func (r *YAMLRepository) loadFile(path string) ([]*declare.Constraint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Parse into yaml.Node tree to handle !include tags.
	var rootNode yaml.Node
	if err := yaml.Unmarshal(data, &rootNode); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if rootNode.Kind == 0 {
		// Empty file.
		return nil, nil
	}

	if err := r.resolver.ResolveIncludes(&rootNode, path); err != nil {
		return nil, fmt.Errorf("failed to resolve includes: %w", err)
	}

	if rootNode.Kind != yaml.DocumentNode || len(rootNode.Content) == 0 {
		return nil, fmt.Errorf("unexpected YAML structure in %s", path)
	}
	content := rootNode.Content[0]

	switch {
	case content.Kind == yaml.SequenceNode:
		return decodeSequence(content.Content, path, false)

	case content.Kind == yaml.MappingNode && mappingValue(content, "constraints") != nil:
		var ym yamlModel
		if err := content.Decode(&ym); err != nil {
			return nil, fmt.Errorf("failed to decode model: %w", err)
		}
		return decodeSequence(mappingValue(content, "constraints").Content, path, ym.ConsiderVacuity)

	case content.Kind == yaml.MappingNode:
		c, err := decodeConstraintNode(content, false)
		if err != nil {
			return nil, err
		}
		c.SourceFile = path
		c.SourceIndex = -1
		return []*declare.Constraint{c}, nil
	}

	return nil, fmt.Errorf("unexpected YAML structure in %s", path)
}

func decodeSequence(items []*yaml.Node, path string, considerVacuity bool) ([]*declare.Constraint, error) {
	constraints := make([]*declare.Constraint, 0, len(items))
	for i, item := range items {
		c, err := decodeConstraintNode(item, considerVacuity)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		c.SourceFile = path
		c.SourceIndex = i
		constraints = append(constraints, c)
	}
	return constraints, nil
}

// LoadByID loads a single constraint by its ID.
func (r *YAMLRepository) LoadByID(ctx context.Context, id string) (*declare.Constraint, error) {
	all, err := r.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load constraints: %w", err)
	}
	for _, c := range all {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, declare.ErrNotFound
}

// SaveConstraint writes constraint YAML content to disk.
// For existing constraints (SourceFile set), it updates the file.
// For new constraints (SourceFile empty), it creates a new file.
func (r *YAMLRepository) SaveConstraint(_ context.Context, c *declare.Constraint, yamlContent []byte) error {
	// Validate the YAML parses correctly.
	var check yaml.Node
	if err := yaml.Unmarshal(yamlContent, &check); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	if c.SourceFile == "" {
		// New constraint: rootDir/constraints/<id>.yaml
		dir := filepath.Join(r.rootDir, "constraints")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create constraints directory: %w", err)
		}
		target := filepath.Join(dir, c.ID+".yaml")

		if err := r.validatePathWithinRoot(target); err != nil {
			return err
		}

		return atomicWriteFile(target, yamlContent)
	}

	if err := r.validatePathWithinRoot(c.SourceFile); err != nil {
		return err
	}

	if c.SourceIndex < 0 {
		// Single-constraint file: replace entire file.
		return atomicWriteFile(c.SourceFile, yamlContent)
	}

	return r.replaceInSequence(c.SourceFile, c.SourceIndex, yamlContent)
}

// DeleteConstraint removes a constraint from its source file.
func (r *YAMLRepository) DeleteConstraint(_ context.Context, sourceFile string, sourceIndex int) error {
	if err := r.validatePathWithinRoot(sourceFile); err != nil {
		return err
	}

	if sourceIndex < 0 {
		if err := os.Remove(sourceFile); err != nil {
			return fmt.Errorf("failed to delete constraint file: %w", err)
		}
		return nil
	}

	return r.removeFromSequence(sourceFile, sourceIndex)
}

// ReadSourceYAML reads the raw YAML content for a specific constraint.
func (r *YAMLRepository) ReadSourceYAML(_ context.Context, c *declare.Constraint) ([]byte, error) {
	if c.SourceFile == "" {
		return nil, errors.New("constraint has no source file")
	}

	data, err := os.ReadFile(c.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	if c.SourceIndex < 0 {
		return data, nil
	}

	return extractFromSequence(data, c.SourceIndex)
}

// validatePathWithinRoot ensures a path resolves within the root directory.
func (r *YAMLRepository) validatePathWithinRoot(path string) error {
	resolved, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		// If the directory doesn't exist yet, check the absolute path.
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		if !withinRoot(abs, r.rootDir) {
			return fmt.Errorf("path traversal denied: %s is outside root %s", path, r.rootDir)
		}
		return nil
	}
	root, err := filepath.EvalSymlinks(r.rootDir)
	if err != nil {
		root = r.rootDir
	}
	if !withinRoot(resolved, root) {
		return fmt.Errorf("path traversal denied: %s is outside root %s", path, r.rootDir)
	}
	return nil
}

func withinRoot(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// atomicWriteFile writes content to a temp file then renames it to the target path.
func atomicWriteFile(target string, content []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".declarecheck-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// constraintSequence returns the sequence node holding a file's constraints:
// the document itself, or the value of its constraints key.
func constraintSequence(rootNode *yaml.Node) (*yaml.Node, error) {
	if rootNode.Kind != yaml.DocumentNode || len(rootNode.Content) == 0 {
		return nil, errors.New("unexpected YAML structure")
	}
	content := rootNode.Content[0]
	if content.Kind == yaml.MappingNode {
		content = mappingValue(content, "constraints")
	}
	if content == nil || content.Kind != yaml.SequenceNode {
		return nil, errors.New("file does not hold a constraint sequence")
	}
	return content, nil
}

func loadSequence(data []byte, index int) (*yaml.Node, *yaml.Node, error) {
	var rootNode yaml.Node
	if err := yaml.Unmarshal(data, &rootNode); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	seq, err := constraintSequence(&rootNode)
	if err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(seq.Content) {
		return nil, nil, fmt.Errorf("index %d out of range (file has %d entries)", index, len(seq.Content))
	}
	return &rootNode, seq, nil
}

// replaceInSequence replaces an entry at a given index in a constraint sequence.
func (r *YAMLRepository) replaceInSequence(filePath string, index int, newContent []byte) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	rootNode, seq, err := loadSequence(data, index)
	if err != nil {
		return err
	}

	var newNode yaml.Node
	if err := yaml.Unmarshal(newContent, &newNode); err != nil {
		return fmt.Errorf("failed to parse replacement YAML: %w", err)
	}
	if newNode.Kind != yaml.DocumentNode || len(newNode.Content) == 0 {
		return errors.New("unexpected replacement YAML structure")
	}

	seq.Content[index] = newNode.Content[0]

	out, err := yaml.Marshal(rootNode)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return atomicWriteFile(filePath, out)
}

// removeFromSequence removes an entry at a given index from a constraint
// sequence. A bare sequence file left empty is deleted.
func (r *YAMLRepository) removeFromSequence(filePath string, index int) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	rootNode, seq, err := loadSequence(data, index)
	if err != nil {
		return err
	}

	seq.Content = append(seq.Content[:index], seq.Content[index+1:]...)

	if len(seq.Content) == 0 && rootNode.Content[0] == seq {
		return os.Remove(filePath)
	}

	out, err := yaml.Marshal(rootNode)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return atomicWriteFile(filePath, out)
}

// extractFromSequence extracts a single entry from a constraint sequence.
func extractFromSequence(data []byte, index int) ([]byte, error) {
	_, seq, err := loadSequence(data, index)
	if err != nil {
		return nil, err
	}

	out, err := yaml.Marshal(seq.Content[index])
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return out, nil
}

// mappingValue returns the value node of key in a mapping node, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func decodeConstraintNode(node *yaml.Node, considerVacuity bool) (*declare.Constraint, error) {
	var yc yamlConstraint
	if err := node.Decode(&yc); err != nil {
		return nil, fmt.Errorf("failed to decode constraint: %w", err)
	}
	return toConstraint(&yc, considerVacuity)
}

func toConstraint(yc *yamlConstraint, considerVacuity bool) (*declare.Constraint, error) {
	tmpl, err := declare.ParseTemplate(yc.Template)
	if err != nil {
		return nil, err
	}

	c := &declare.Constraint{
		ID:         yc.ID,
		Template:   tmpl,
		Activities: yc.Activities,
		Rules: declare.RuleBundle{
			Activation:          strings.TrimSpace(yc.Activation),
			Correlation:         strings.TrimSpace(yc.Correlation),
			Time:                strings.TrimSpace(yc.Time),
			N:                   yc.N,
			VacuousSatisfaction: considerVacuity,
		},
	}
	if yc.VacuousSatisfaction != nil {
		c.Rules.VacuousSatisfaction = *yc.VacuousSatisfaction
	}
	return c, nil
}

// DecodeConstraint parses a single constraint document, as accepted by
// SaveConstraint.
func DecodeConstraint(data []byte) (*declare.Constraint, error) {
	var yc yamlConstraint
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return toConstraint(&yc, false)
}

// EncodeConstraint renders a constraint in the model file syntax.
func EncodeConstraint(c *declare.Constraint) ([]byte, error) {
	yc := yamlConstraint{
		ID:          c.ID,
		Template:    c.Template.Key(),
		Activities:  c.Activities,
		Activation:  c.Rules.Activation,
		Correlation: c.Rules.Correlation,
		Time:        c.Rules.Time,
		N:           c.Rules.N,
	}
	if c.Rules.VacuousSatisfaction {
		v := true
		yc.VacuousSatisfaction = &v
	}
	out, err := yaml.Marshal(&yc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal constraint: %w", err)
	}
	return out, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
