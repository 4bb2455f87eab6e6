// Package flowchart lays out step lists on a fixed grid and emits them as a
// wrapped mxfile document.
package flowchart

import (
	"fmt"

	"github.com/rendis/drawio-mcp/internal/mxgraph"
	"github.com/rendis/drawio-mcp/pkg/schema"
)

// Options holds the layout constants.
type Options struct {
	CenterX           float64
	StartY            float64
	VerticalSpacing   float64
	HorizontalSpacing float64
	PageWidth         float64
	PageHeight        float64
}

// DefaultOptions returns the standard grid.
func DefaultOptions() Options {
	return Options{
		CenterX:           700,
		StartY:            80,
		VerticalSpacing:   140,
		HorizontalSpacing: 280,
		PageWidth:         1400,
		PageHeight:        1200,
	}
}

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result is the output of a layout pass.
type Result struct {
	Document    string            `json:"document"`
	ShapeIDs    map[string]string `json:"shape_ids"`
	Positions   map[string]Point  `json:"positions"`
	Shapes      int               `json:"shapes"`
	Connections int               `json:"connections"`
}

// Engine positions steps and drives the assembler.
type Engine struct {
	asm  *mxgraph.Assembler
	wrap *mxgraph.Wrapper
	opts Options
}

// NewEngine creates an Engine. Zero-valued options take the defaults.
func NewEngine(asm *mxgraph.Assembler, wrap *mxgraph.Wrapper, opts Options) *Engine {
	def := DefaultOptions()
	if opts.CenterX == 0 {
		opts.CenterX = def.CenterX
	}
	if opts.StartY == 0 {
		opts.StartY = def.StartY
	}
	if opts.VerticalSpacing == 0 {
		opts.VerticalSpacing = def.VerticalSpacing
	}
	if opts.HorizontalSpacing == 0 {
		opts.HorizontalSpacing = def.HorizontalSpacing
	}
	if opts.PageWidth == 0 {
		opts.PageWidth = def.PageWidth
	}
	if opts.PageHeight == 0 {
		opts.PageHeight = def.PageHeight
	}
	return &Engine{asm: asm, wrap: wrap, opts: opts}
}

// Options returns the effective layout constants.
func (e *Engine) Options() Options {
	return e.opts
}

// Layout places every step, emits shapes then connections in input order
// and wraps the document. Successors that name no step are skipped. With
// duplicate step ids the later step wins.
func (e *Engine) Layout(title string, steps []schema.FlowchartStep, format schema.OutputFormat) (*Result, error) {
	positions := e.Positions(steps)

	res := &Result{
		ShapeIDs:  make(map[string]string, len(steps)),
		Positions: positions,
	}

	doc := mxgraph.EmptyDocument(e.opts.PageWidth, e.opts.PageHeight)
	for _, step := range steps {
		box := boxFor(step.Type)
		pos := positions[step.ID]

		var id string
		doc, id = e.asm.InsertShape(doc, mxgraph.ShapeSpec{
			Kind:        box.shape,
			Text:        step.Text,
			X:           pos.X,
			Y:           pos.Y,
			Width:       box.width,
			Height:      box.height,
			FillColor:   box.fill,
			StrokeColor: strokeColor,
		})
		res.ShapeIDs[step.ID] = id
		res.Shapes++
	}

	for _, step := range steps {
		sourceID := res.ShapeIDs[step.ID]
		for i, next := range step.Next {
			targetID, ok := res.ShapeIDs[next]
			if !ok {
				continue
			}
			doc, _ = e.asm.InsertConnection(doc, mxgraph.ConnectionSpec{
				SourceID: sourceID,
				TargetID: targetID,
				Label:    step.Label(i),
				Kind:     schema.ConnectorOrthogonal,
				ArrowEnd: true,
			})
			res.Connections++
		}
	}

	wrapped, err := e.wrap.Wrap(doc, title, format == schema.FormatCompressed)
	if err != nil {
		return nil, fmt.Errorf("wrap flowchart %q: %w", title, err)
	}
	res.Document = wrapped
	return res, nil
}

// Positions returns the top-left anchor of every step. Each step gets the
// row of its index; decision successors are spread horizontally around the
// center, and a successor shared by several decisions keeps the spread of
// the last one.
func (e *Engine) Positions(steps []schema.FlowchartStep) map[string]Point {
	positions := make(map[string]Point, len(steps))
	for i, step := range steps {
		positions[step.ID] = Point{
			X: e.opts.CenterX,
			Y: e.opts.StartY + float64(i)*e.opts.VerticalSpacing,
		}
	}

	spacing := e.opts.HorizontalSpacing
	for _, step := range steps {
		if step.Type != schema.StepDecision || len(step.Next) <= 1 {
			continue
		}

		offsets := make([]float64, len(step.Next))
		if len(step.Next) == 2 {
			offsets[0], offsets[1] = -spacing, spacing
		} else {
			start := -float64(len(step.Next)-1) * spacing / 2
			for i := range offsets {
				offsets[i] = start + float64(i)*spacing
			}
		}

		for i, next := range step.Next {
			pos, ok := positions[next]
			if !ok {
				continue
			}
			pos.X = e.opts.CenterX + offsets[i]
			positions[next] = pos
		}
	}
	return positions
}
