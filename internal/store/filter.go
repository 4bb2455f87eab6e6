package store

import "context"

// Matcher evaluates a predicate against a variable map.
// Satisfied by expressions.ExprEngine.
type Matcher interface {
	Match(ctx context.Context, expression string, data map[string]any) (bool, error)
}

// Filter keeps the entries for which where holds, evaluated over
// Metadata.FilterEnv. An empty where keeps everything.
func Filter(ctx context.Context, m Matcher, all []Metadata, where string) ([]Metadata, error) {
	out := make([]Metadata, 0, len(all))
	for _, md := range all {
		if where != "" {
			ok, err := m.Match(ctx, where, md.FilterEnv())
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, md)
	}
	return out, nil
}
