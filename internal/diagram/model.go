package diagram

import "github.com/rendis/drawio-mcp/pkg/schema"

// Model is the intermediate representation used by all preview renderers.
type Model struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents a single flowchart step.
type Node struct {
	ID    string
	Label string
	Kind  schema.StepKind
}

// Edge represents a transition between two steps.
type Edge struct {
	From  string
	To    string
	Label string
}

// Node looks up a node by ID.
func (m *Model) Node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
