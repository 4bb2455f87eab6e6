package flowchart

import "github.com/rendis/drawio-mcp/pkg/schema"

const strokeColor = "#000000"

type box struct {
	shape  schema.ShapeKind
	width  float64
	height float64
	fill   string
}

func boxFor(kind schema.StepKind) box {
	switch kind {
	case schema.StepStart, schema.StepEnd:
		return box{shape: schema.ShapeEllipse, width: 120, height: 60, fill: "#d5e8d4"}
	case schema.StepDecision:
		return box{shape: schema.ShapeRhombus, width: 140, height: 90, fill: "#fff2cc"}
	case schema.StepInput, schema.StepOutput:
		return box{shape: schema.ShapeRounded, width: 140, height: 60, fill: "#dae8fc"}
	case schema.StepProcess:
		return box{shape: schema.ShapeRectangle, width: 140, height: 60, fill: "#ffffff"}
	default:
		return box{shape: schema.ShapeRectangle, width: 140, height: 60, fill: "#ffffff"}
	}
}
