// Package discovery holds the static tool catalog and answers list, search
// and schema queries against it at three levels of detail.
package discovery

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/drawio-mcp/internal/expressions"
	"github.com/rendis/drawio-mcp/pkg/schema"
)

//go:embed catalog.json
var catalogJSON []byte

// Detail selects how much of each descriptor is returned.
type Detail string

const (
	DetailMinimal Detail = "minimal"
	DetailBrief   Detail = "brief"
	DetailFull    Detail = "full"
)

// Projections applied to the catalog, keyed by detail level.
var projections = map[Detail]string{
	DetailMinimal: `.tools | map(.name)`,
	DetailBrief:   `.tools | map({name, description, category, tags})`,
	DetailFull:    `.tools`,
}

// Descriptor describes one tool.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	Schema      json.RawMessage `json:"schema"`
}

// Registry is the read-only tool catalog.
type Registry struct {
	descriptors []Descriptor
	generic     []any // descriptors decoded as plain JSON values, same order
	index       map[string]int
	jq          *expressions.GoJQEngine
}

// NewRegistry loads the embedded catalog.
func NewRegistry() (*Registry, error) {
	return newRegistry(catalogJSON)
}

func newRegistry(raw []byte) (*Registry, error) {
	r := &Registry{
		index: make(map[string]int),
		jq:    expressions.NewGoJQEngine(),
	}
	if err := json.Unmarshal(raw, &r.descriptors); err != nil {
		return nil, fmt.Errorf("decode tool catalog: %w", err)
	}
	if err := json.Unmarshal(raw, &r.generic); err != nil {
		return nil, fmt.Errorf("decode tool catalog: %w", err)
	}

	for i, d := range r.descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("tool catalog entry %d has no name", i)
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q in catalog", d.Name)
		}
		r.index[d.Name] = i
	}

	for _, program := range projections {
		if err := r.jq.Compile(program); err != nil {
			return nil, fmt.Errorf("compile catalog projection: %w", err)
		}
	}
	return r, nil
}

// Descriptors returns every descriptor in catalog order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Descriptor looks up a tool by name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	i, ok := r.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// ListTools renders the whole catalog. Unknown detail levels fall back to
// minimal.
func (r *Registry) ListTools(detail Detail) (string, error) {
	return r.render(detail, r.generic)
}

// SearchTools filters by exact category, then by a case-insensitive
// substring of name, description or any tag. Empty arguments match
// everything. The result uses the brief projection.
func (r *Registry) SearchTools(query, category string) (string, error) {
	q := strings.ToLower(query)

	matched := make([]any, 0, len(r.descriptors))
	for i, d := range r.descriptors {
		if category != "" && d.Category != category {
			continue
		}
		if q != "" && !d.matches(q) {
			continue
		}
		matched = append(matched, r.generic[i])
	}
	return r.render(DetailBrief, matched)
}

// GetToolSchema renders the full descriptor of one tool.
func (r *Registry) GetToolSchema(name string) (string, error) {
	i, ok := r.index[name]
	if !ok {
		return "", schema.NewErrorf(schema.ErrCodeNotFound, "tool %q not found", name).WithField("name")
	}
	out, err := json.MarshalIndent(r.generic[i], "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode tool %q: %w", name, err)
	}
	return string(out), nil
}

// Categories returns the distinct categories in catalog order.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range r.descriptors {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	return out
}

func (r *Registry) render(detail Detail, tools []any) (string, error) {
	program, ok := projections[detail]
	if !ok {
		detail = DetailMinimal
		program = projections[detail]
	}

	out, err := r.jq.Evaluate(context.Background(), program, map[string]any{"tools": tools})
	if err != nil {
		return "", err
	}

	var data []byte
	if detail == DetailMinimal {
		data, err = json.Marshal(out)
	} else {
		data, err = json.MarshalIndent(out, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("encode catalog: %w", err)
	}
	return string(data), nil
}

func (d Descriptor) matches(lowerQuery string) bool {
	if strings.Contains(strings.ToLower(d.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(d.Description), lowerQuery) {
		return true
	}
	for _, tag := range d.Tags {
		if strings.Contains(strings.ToLower(tag), lowerQuery) {
			return true
		}
	}
	return false
}
