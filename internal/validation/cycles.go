package validation

import "github.com/rendis/drawio-mcp/pkg/schema"

const (
	white = iota
	grey
	black
)

// findCycle returns the first cycle reachable in input order, as a path that
// starts and ends with the same step id, or nil. Self references are left to
// the self-reference rule.
func findCycle(steps []schema.FlowchartStep) []string {
	succ := make(map[string][]string, len(steps))
	var order []string
	for _, s := range steps {
		if _, ok := succ[s.ID]; !ok {
			order = append(order, s.ID)
		}
		for _, n := range s.Next {
			if n != s.ID {
				succ[s.ID] = append(succ[s.ID], n)
			}
		}
		if succ[s.ID] == nil {
			succ[s.ID] = []string{}
		}
	}

	color := make(map[string]int, len(succ))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = grey
		stack = append(stack, id)
		for _, n := range succ[id] {
			if _, known := succ[n]; !known {
				continue
			}
			switch color[n] {
			case grey:
				for i, s := range stack {
					if s == n {
						path := append([]string{}, stack[i:]...)
						return append(path, n)
					}
				}
			case white:
				if path := visit(n); path != nil {
					return path
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range order {
		if color[id] == white {
			if path := visit(id); path != nil {
				return path
			}
		}
	}
	return nil
}
