// Package yamlvalues reads and patches scalar paths in Helm values files,
// preserving comments and key order.
package yamlvalues

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/chart-release/api"
	"github.com/nathantilsley/chart-release/internal/release/domain"
)

const indent = 2

// typedPaths are served from the decoded api.ValuesOverrides struct.
// Any other path goes through the generic node walk.
var typedPaths = map[string]func(api.ValuesOverrides) (string, bool){
	".image.tag":              api.ValuesOverrides.ImageTag,
	".migrationJob.image.tag": api.ValuesOverrides.MigrationJobImageTag,
}

// Adapter implements ports.ValuesPort on top of the yaml.v3 node API.
type Adapter struct{}

// New creates a new values file adapter.
func New() *Adapter {
	return &Adapter{}
}

// Read returns the scalar at each path, in order. A missing file yields a
// *domain.PathNotFoundError with an empty Path.
func (a *Adapter) Read(_ context.Context, file string, paths []string) ([]domain.FieldValue, error) {
	content, err := readFile(file)
	if err != nil {
		return nil, err
	}

	var typed api.ValuesOverrides
	typedOK := yaml.Unmarshal(content, &typed) == nil

	doc, err := parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}

	values := make([]domain.FieldValue, 0, len(paths))
	for _, p := range paths {
		if get, ok := typedPaths[p]; ok && typedOK {
			v, found := get(typed)
			values = append(values, domain.FieldValue{Path: p, Value: v, Found: found})
			continue
		}

		keys, err := splitPath(p)
		if err != nil {
			return nil, err
		}
		node := lookup(doc, keys)
		if node == nil || isNull(node) {
			values = append(values, domain.FieldValue{Path: p})
			continue
		}
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("path %s in %s is not a scalar", p, file)
		}
		values = append(values, domain.FieldValue{Path: p, Value: node.Value, Found: true})
	}
	return values, nil
}

// Write sets each existing path to value as a string scalar and writes the
// file back. Paths absent from the document are left untouched.
func (a *Adapter) Write(_ context.Context, file string, paths []string, value string) ([]byte, []byte, error) {
	content, err := readFile(file)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(file)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", file, err)
	}

	doc, err := parse(content)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", file, err)
	}

	for _, p := range paths {
		keys, err := splitPath(p)
		if err != nil {
			return nil, nil, err
		}
		node := lookup(doc, keys)
		if node == nil {
			continue
		}
		if node.Kind != yaml.ScalarNode {
			return nil, nil, fmt.Errorf("path %s in %s is not a scalar", p, file)
		}
		node.Tag = "!!str"
		node.Value = value
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(doc); err != nil {
		return nil, nil, fmt.Errorf("encoding %s: %w", file, err)
	}
	if err := enc.Close(); err != nil {
		return nil, nil, fmt.Errorf("encoding %s: %w", file, err)
	}

	updated := buf.Bytes()
	if err := os.WriteFile(file, updated, info.Mode().Perm()); err != nil {
		return nil, nil, fmt.Errorf("writing %s: %w", file, err)
	}
	return content, updated, nil
}

func readFile(file string) ([]byte, error) {
	content, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.PathNotFoundError{File: file}
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return content, nil
}

// ErrMultipleDocuments is returned for values files holding more than one
// YAML document. Helm reads only the first, and rewriting would drop the rest.
var ErrMultipleDocuments = errors.New("values file contains more than one YAML document")

// parse returns the document node. Empty input yields an empty mapping so
// lookups report paths as absent.
func parse(content []byte) (*yaml.Node, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(content))
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case err == nil:
		return nil, ErrMultipleDocuments
	case !errors.Is(err, io.EOF):
		return nil, err
	}
	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	return &doc, nil
}

// splitPath turns ".image.tag" into ["image", "tag"].
func splitPath(p string) ([]string, error) {
	trimmed := strings.TrimPrefix(p, ".")
	if trimmed == "" {
		return nil, fmt.Errorf("invalid path %q", p)
	}
	keys := strings.Split(trimmed, ".")
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", p)
		}
	}
	return keys, nil
}

// lookup walks mapping keys from the document root. Returns nil when any
// segment is missing or traverses a non-mapping node.
func lookup(doc *yaml.Node, keys []string) *yaml.Node {
	node := doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	for _, key := range keys {
		if node.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}
