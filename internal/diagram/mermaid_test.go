package diagram

import (
	"strings"
	"testing"

	"github.com/rendis/drawio-mcp/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMermaidValidationFlow(t *testing.T) {
	model, err := Build("Order", validationFlow())
	require.NoError(t, err)

	output := RenderMermaid(model)

	assert.True(t, strings.HasPrefix(output, "flowchart TD\n"))
	assert.Contains(t, output, "%% Order")

	// Shapes by kind.
	assert.Contains(t, output, `n_start(["Begin"])`)
	assert.Contains(t, output, `n_check{"Valid?"}`)
	assert.Contains(t, output, `n_ok["Process"]`)
	assert.Contains(t, output, `n_fail[/"Report error"/]`)
	assert.Contains(t, output, `n_done(["Done"])`)

	// Edges with labels.
	assert.Contains(t, output, "n_start --> n_check")
	assert.Contains(t, output, "n_check -->|Yes| n_ok")
	assert.Contains(t, output, "n_check -->|No| n_fail")
}

func TestRenderMermaidEscaping(t *testing.T) {
	model, err := Build("", []schema.FlowchartStep{
		{ID: "my-step", Type: schema.StepProcess, Text: `Say "hi"`},
	})
	require.NoError(t, err)

	output := RenderMermaid(model)
	assert.Contains(t, output, `n_my_step["Say #quot;hi#quot;"]`)
	assert.NotContains(t, output, "%%", "no title comment without a title")
}
