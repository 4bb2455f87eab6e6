package expressions

import "github.com/rendis/drawio-mcp/pkg/schema"

func compileError(engine, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s compile error in %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

func evalError(engine, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s evaluation failed for %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

func emptyError(engine string) error {
	return schema.NewErrorf(schema.ErrCodeValidation, "empty %s expression", engine)
}

func notBoolError(engine, expression string, got any) error {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s expression %q must produce a boolean, got %T", engine, expression, got).
		WithDetails(map[string]any{"expression": expression})
}
