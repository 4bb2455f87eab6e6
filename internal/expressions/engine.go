package expressions

import "context"

// Engine evaluates an expression against a JSON-like data map.
// Three implementations: CEL (flowchart lint rules), GoJQ (catalog
// projections), Expr (diagram list filters).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Bool evaluates expression with engine and requires a boolean result.
func Bool(ctx context.Context, engine Engine, expression string, data map[string]any) (bool, error) {
	out, err := engine.Evaluate(ctx, expression, data)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, notBoolError(engine.Name(), expression, out)
	}
	return b, nil
}
