package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxIncludeDepth = 10

// IncludeResolver expands !include tags in a parsed model file.
//
// A YAML target (.yaml, .yml) is spliced in place of the tagged node and may
// itself include further files. Any other target, typically a condition
// fragment such as big_order.expr, replaces the node with its text, trailing
// newlines removed. References are relative to the including file, or to
// the model root with @root/ and to the including directory with @here/.
// Targets must stay inside the model root once symlinks are resolved.
type IncludeResolver struct {
	rootDir string
}

// NewIncludeResolver creates a resolver confined to rootDir.
func NewIncludeResolver(rootDir string) *IncludeResolver {
	return &IncludeResolver{rootDir: rootDir}
}

// ResolveIncludes expands every !include under node, which was parsed from
// file.
func (r *IncludeResolver) ResolveIncludes(node *yaml.Node, file string) error {
	if node == nil {
		return nil
	}
	return r.expand(node, []string{filepath.Clean(file)})
}

// expand walks node; chain holds the files being expanded, outermost first.
func (r *IncludeResolver) expand(node *yaml.Node, chain []string) error {
	if node.Tag == "!include" {
		return r.splice(node, chain)
	}
	for _, child := range node.Content {
		if err := r.expand(child, chain); err != nil {
			return err
		}
	}
	return nil
}

func (r *IncludeResolver) splice(node *yaml.Node, chain []string) error {
	ref := strings.TrimSpace(node.Value)
	if ref == "" {
		return fmt.Errorf("line %d: !include needs a file name", node.Line)
	}

	target, err := r.locate(ref, filepath.Dir(chain[len(chain)-1]))
	if err != nil {
		return fmt.Errorf("line %d: !include %q: %w", node.Line, ref, err)
	}
	if slices.Contains(chain, target) {
		return fmt.Errorf("include cycle: %s", r.describe(append(chain, target)))
	}
	if len(chain) > maxIncludeDepth {
		return fmt.Errorf("include chain deeper than %d: %s", maxIncludeDepth, r.describe(chain))
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("line %d: !include %q: %w", node.Line, ref, err)
	}

	if !isYAMLFile(target) {
		*node = yaml.Node{
			Kind:   yaml.ScalarNode,
			Tag:    "!!str",
			Value:  strings.TrimRight(string(data), "\r\n"),
			Line:   node.Line,
			Column: node.Column,
		}
		return nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", r.rel(target), err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fmt.Errorf("%s is empty", r.rel(target))
	}
	included := doc.Content[0]
	if err := r.expand(included, append(slices.Clip(chain), target)); err != nil {
		return err
	}
	*node = *included
	return nil
}

// locate maps an include reference to a cleaned path inside the root.
func (r *IncludeResolver) locate(ref, dir string) (string, error) {
	var path string
	switch {
	case filepath.IsAbs(ref):
		return "", fmt.Errorf("absolute paths are not allowed")
	case strings.HasPrefix(ref, "@root/"):
		path = filepath.Join(r.rootDir, strings.TrimPrefix(ref, "@root/"))
	case strings.HasPrefix(ref, "@here/"):
		path = filepath.Join(dir, strings.TrimPrefix(ref, "@here/"))
	default:
		path = filepath.Join(dir, ref)
	}

	root := r.rootDir
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	real := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		real = resolved
	}
	if !withinRoot(path, r.rootDir) || !withinRoot(real, root) {
		return "", fmt.Errorf("path escapes the model root")
	}
	return path, nil
}

func (r *IncludeResolver) describe(chain []string) string {
	names := make([]string, len(chain))
	for i, p := range chain {
		names[i] = r.rel(p)
	}
	return strings.Join(names, " -> ")
}

func (r *IncludeResolver) rel(path string) string {
	if rel, err := filepath.Rel(r.rootDir, path); err == nil {
		return rel
	}
	return path
}
