package diagram

import (
	"bytes"
	"context"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

// RenderImage renders a Model as a PNG image using graphviz.
func RenderImage(ctx context.Context, model *Model) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, renderError("create graphviz", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, renderError("create graph", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(firstLine(model.Title))
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, renderError("create node "+node.ID, nErr)
		}
		gvNode.SetLabel(firstLine(node.Label))
		applyNodeStyle(gvNode, node)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range model.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
		if eErr == nil && edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, renderError("render PNG", err)
	}

	return buf.Bytes(), nil
}

// applyNodeStyle sets graphviz shape and fill from the step kind, using the
// same palette as the document layout.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch node.Kind {
	case schema.StepStart, schema.StepEnd:
		gvNode.SetShape(cgraph.EllipseShape)
		gvNode.SetFillColor("#d5e8d4")
	case schema.StepDecision:
		gvNode.SetShape(cgraph.DiamondShape)
		gvNode.SetFillColor("#fff2cc")
	case schema.StepInput, schema.StepOutput:
		gvNode.SetShape(cgraph.ParallelogramShape)
		gvNode.SetFillColor("#dae8fc")
	default:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetFillColor("#ffffff")
	}
}

func renderError(op string, err error) error {
	return schema.NewErrorf(schema.ErrCodeRender, "diagram: %s", op).WithCause(err)
}
