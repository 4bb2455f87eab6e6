package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/drawio-mcp/internal/discovery"
	"github.com/rendis/drawio-mcp/internal/export"
)

// recordingViewer reports every file as opened.
type recordingViewer struct {
	paths []string
}

func (v *recordingViewer) Open(_ context.Context, path string) bool {
	v.paths = append(v.paths, path)
	return true
}

func newTestServer(t *testing.T, mutate ...func(*DrawioServerDeps)) *DrawioServer {
	t.Helper()
	deps := DrawioServerDeps{
		TempWriter: export.NewWriter(t.TempDir()),
		SaveWriter: export.NewWriter(t.TempDir()),
		Viewer:     export.NopViewer{},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&deps)
	}
	s, err := NewDrawioServer(deps)
	require.NoError(t, err)
	return s
}

func TestNewDrawioServer(t *testing.T) {
	s := newTestServer(t)
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.Equal(t, "drawio", s.Scheme())
	assert.NotNil(t, s.Store())
	assert.NotNil(t, s.HTTPHandler())
}

func TestToolRegistration(t *testing.T) {
	s := newTestServer(t)
	reg, err := discovery.NewRegistry()
	require.NoError(t, err)

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, len(reg.Descriptors()))

	for _, d := range reg.Descriptors() {
		tool := s.mcpServer.GetTool(d.Name)
		require.NotNil(t, tool, "tool %s should be registered", d.Name)
		assert.Equal(t, d.Description, tool.Tool.Description)
	}
}

func TestCanonicalToolsPresent(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{
		"create_diagram",
		"create_flowchart",
		"add_shape",
		"add_connection",
		"save_diagram",
	} {
		assert.NotNil(t, s.mcpServer.GetTool(name), name)
	}
}

func TestCustomScheme(t *testing.T) {
	s := newTestServer(t, func(d *DrawioServerDeps) { d.Scheme = "diagrams" })

	result, err := s.handleCreateDiagram(context.Background(), buildRequest("create_diagram", map[string]any{
		"title": "X", "description": "d", "diagram_type": "custom",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out generatedDiagram
	unmarshalResult(t, result, &out)
	assert.Equal(t, "diagrams://diagram/"+out.DiagramID, out.ResourceURI)
}
