package mxgraph

import "github.com/rendis/drawio-mcp/pkg/schema"

const (
	orthogonalBase = "edgeStyle=orthogonalEdgeStyle;rounded=0;orthogonalLoop=1;jettySize=auto;html=1;"
	curvedBase     = "edgeStyle=orthogonalEdgeStyle;rounded=1;orthogonalLoop=1;jettySize=auto;html=1;"
)

// ShapeStyle returns the style attribute for a vertex. Colors are embedded
// as given. Unknown kinds render as a plain rectangle.
func ShapeStyle(kind schema.ShapeKind, fill, stroke string) string {
	base := "fillColor=" + fill + ";strokeColor=" + stroke + ";"

	switch kind {
	case schema.ShapeRectangle:
		return base + "whiteSpace=wrap;html=1;"
	case schema.ShapeRounded:
		return base + "rounded=1;whiteSpace=wrap;html=1;"
	case schema.ShapeEllipse:
		return base + "ellipse;whiteSpace=wrap;html=1;"
	case schema.ShapeRhombus:
		return base + "rhombus;whiteSpace=wrap;html=1;"
	case schema.ShapeHexagon:
		return base + "shape=hexagon;perimeter=hexagonPerimeter2;whiteSpace=wrap;html=1;"
	case schema.ShapeCylinder:
		return base + "shape=cylinder;whiteSpace=wrap;html=1;"
	case schema.ShapeCloud:
		return base + "ellipse;shape=cloud;whiteSpace=wrap;html=1;"
	case schema.ShapeActor:
		return base + "shape=umlActor;verticalLabelPosition=bottom;verticalAlign=top;html=1;"
	case schema.ShapeNote:
		return base + "shape=note;whiteSpace=wrap;html=1;size=20;"
	case schema.ShapeSwimlane:
		return base + "swimlane;whiteSpace=wrap;html=1;startSize=23;"
	default:
		return base + "whiteSpace=wrap;html=1;"
	}
}

// ConnectionStyle returns the style attribute for an edge. Unknown kinds
// route orthogonally.
func ConnectionStyle(kind schema.ConnectorKind, arrowEnd, arrowStart bool) string {
	var style string
	switch kind {
	case schema.ConnectorStraight:
		style = "edgeStyle=none;"
	case schema.ConnectorOrthogonal:
		style = orthogonalBase
	case schema.ConnectorCurved:
		style = curvedBase
	case schema.ConnectorDashed:
		style = orthogonalBase + "dashed=1;"
	case schema.ConnectorDotted:
		style = orthogonalBase + "dashed=1;dashPattern=1 4;"
	default:
		style = orthogonalBase
	}

	if arrowEnd {
		style += "endArrow=classic;endFill=1;"
	} else {
		style += "endArrow=none;"
	}
	if arrowStart {
		style += "startArrow=classic;startFill=1;"
	}
	return style
}
