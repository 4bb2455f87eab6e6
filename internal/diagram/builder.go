package diagram

import (
	"github.com/rendis/drawio-mcp/pkg/schema"
)

// Build constructs a Model from flowchart steps. Duplicate step ids keep the
// position of their first appearance and the content of their last. Successors
// that name no step are dropped.
func Build(title string, steps []schema.FlowchartStep) (*Model, error) {
	if len(steps) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "at least one step is required").WithField("steps")
	}

	index := make(map[string]int, len(steps))
	deduped := make([]schema.FlowchartStep, 0, len(steps))
	for _, s := range steps {
		if i, ok := index[s.ID]; ok {
			deduped[i] = s
			continue
		}
		index[s.ID] = len(deduped)
		deduped = append(deduped, s)
	}

	model := &Model{Title: title}
	for _, s := range deduped {
		label := s.Text
		if label == "" {
			label = s.ID
		}
		model.Nodes = append(model.Nodes, &Node{ID: s.ID, Label: label, Kind: nodeKind(s.Type)})
	}

	for _, s := range deduped {
		for i, next := range s.Next {
			if _, ok := index[next]; !ok {
				continue
			}
			model.Edges = append(model.Edges, Edge{From: s.ID, To: next, Label: s.Label(i)})
		}
	}

	model.Levels = buildLevels(deduped, model.Edges)
	return model, nil
}

// nodeKind normalizes unknown step kinds to process.
func nodeKind(k schema.StepKind) schema.StepKind {
	switch k {
	case schema.StepStart, schema.StepEnd, schema.StepDecision, schema.StepInput, schema.StepOutput:
		return k
	default:
		return schema.StepProcess
	}
}

// buildLevels assigns each step the BFS depth at which it is first reached.
// Start steps are the roots; without any, steps with no incoming edge are used,
// and failing that the first step. Unreached steps form a trailing level.
func buildLevels(steps []schema.FlowchartStep, edges []Edge) [][]string {
	adj := make(map[string][]string, len(steps))
	incoming := make(map[string]int, len(steps))
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
		incoming[e.To]++
	}

	var roots []string
	for _, s := range steps {
		if s.Type == schema.StepStart {
			roots = append(roots, s.ID)
		}
	}
	if len(roots) == 0 {
		for _, s := range steps {
			if incoming[s.ID] == 0 {
				roots = append(roots, s.ID)
			}
		}
	}
	if len(roots) == 0 {
		roots = []string{steps[0].ID}
	}

	visited := make(map[string]bool, len(steps))
	var levels [][]string
	frontier := roots
	for _, id := range roots {
		visited[id] = true
	}
	for len(frontier) > 0 {
		levels = append(levels, frontier)
		var next []string
		for _, id := range frontier {
			for _, to := range adj[id] {
				if visited[to] {
					continue
				}
				visited[to] = true
				next = append(next, to)
			}
		}
		frontier = next
	}

	var rest []string
	for _, s := range steps {
		if !visited[s.ID] {
			rest = append(rest, s.ID)
		}
	}
	if len(rest) > 0 {
		levels = append(levels, rest)
	}
	return levels
}
