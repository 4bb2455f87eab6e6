package expressions

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"
)

// GoJQEngine runs the jq programs that project the tool catalog.
type GoJQEngine struct {
	programs sync.Map // source -> *gojq.Code
}

func NewGoJQEngine() *GoJQEngine { return &GoJQEngine{} }

func (e *GoJQEngine) Name() string { return "jq" }

// Compile parses program and keeps it for later Evaluate calls. The registry
// compiles its projections at startup so a typo fails fast.
func (e *GoJQEngine) Compile(program string) error {
	_, err := e.code(program)
	return err
}

// Evaluate runs program over data. Zero outputs give nil, one output is
// returned bare, more are returned as []any.
func (e *GoJQEngine) Evaluate(ctx context.Context, program string, data map[string]any) (any, error) {
	if program == "" {
		return nil, emptyError(e.Name())
	}
	code, err := e.code(program)
	if err != nil {
		return nil, err
	}

	var outs []any
	iter := code.RunWithContext(ctx, data)
	for v, ok := iter.Next(); ok; v, ok = iter.Next() {
		if runErr, isErr := v.(error); isErr {
			return nil, evalError(e.Name(), program, runErr)
		}
		outs = append(outs, v)
	}
	if len(outs) == 1 {
		return outs[0], nil
	}
	if len(outs) == 0 {
		return nil, nil
	}
	return outs, nil
}

func (e *GoJQEngine) code(program string) (*gojq.Code, error) {
	if cached, ok := e.programs.Load(program); ok {
		return cached.(*gojq.Code), nil
	}
	query, err := gojq.Parse(program)
	if err != nil {
		return nil, compileError(e.Name(), program, err)
	}
	// $ENV stays empty; catalog programs never read the process environment.
	code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, compileError(e.Name(), program, err)
	}
	actual, _ := e.programs.LoadOrStore(program, code)
	return actual.(*gojq.Code), nil
}

var _ Engine = (*GoJQEngine)(nil)
