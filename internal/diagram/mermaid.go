package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

// RenderMermaid renders a Model as a Mermaid flowchart string.
func RenderMermaid(model *Model) string {
	var b strings.Builder

	b.WriteString("flowchart TD\n")

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", firstLine(model.Title)))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", mermaidEscapeLabel(edge.Label))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n",
			mermaidSafeID(edge.From), label, mermaidSafeID(edge.To)))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(firstLine(node.Label))

	switch node.Kind {
	case schema.StepStart, schema.StepEnd:
		return fmt.Sprintf("%s([\"%s\"])", id, label)
	case schema.StepDecision:
		return fmt.Sprintf("%s{\"%s\"}", id, label)
	case schema.StepInput, schema.StepOutput:
		return fmt.Sprintf("%s[/\"%s\"/]", id, label)
	default:
		return fmt.Sprintf("%s[\"%s\"]", id, label)
	}
}

// mermaidSafeID converts a step ID to a Mermaid identifier. The prefix keeps
// ids such as "end" from colliding with Mermaid keywords.
func mermaidSafeID(id string) string {
	var b strings.Builder
	b.WriteString("n_")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var mermaidLabelReplacer = strings.NewReplacer(`"`, "#quot;", "|", "#124;")

func mermaidEscapeLabel(s string) string {
	return mermaidLabelReplacer.Replace(s)
}
