package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/drawio-mcp/internal/export"
	"github.com/rendis/drawio-mcp/internal/mxgraph"
	"github.com/rendis/drawio-mcp/internal/store"
	"github.com/rendis/drawio-mcp/pkg/schema"
)

// --- Test helpers ---

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}

func exampleSteps() []any {
	return []any{
		map[string]any{"id": "s", "type": "start", "text": "Start", "next": []any{"d"}},
		map[string]any{"id": "d", "type": "decision", "text": "OK?", "next": []any{"y", "n"}, "decision_labels": []any{"Yes", "No"}},
		map[string]any{"id": "y", "type": "process", "text": "Continue"},
		map[string]any{"id": "n", "type": "process", "text": "Abort"},
	}
}

// --- Generation ---

func TestCreateDiagram(t *testing.T) {
	viewer := &recordingViewer{}
	tempDir := t.TempDir()
	s := newTestServer(t, func(d *DrawioServerDeps) {
		d.Viewer = viewer
		d.TempWriter = export.NewWriter(tempDir)
	})

	result, err := s.handleCreateDiagram(context.Background(), buildRequest("create_diagram", map[string]any{
		"title":        "Architecture",
		"description":  "Service topology",
		"diagram_type": "network",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out generatedDiagram
	unmarshalResult(t, result, &out)

	assert.True(t, strings.HasPrefix(out.DiagramID, "architecture_"))
	assert.Equal(t, "drawio://diagram/"+out.DiagramID, out.ResourceURI)
	assert.Contains(t, out.XML, `<diagram name="Architecture" id="diagram-1">`)
	assert.Contains(t, out.XML, `pageWidth="1100" pageHeight="850"`)
	assert.True(t, strings.HasPrefix(out.WebURL, export.WebEditorURL))
	assert.True(t, out.OpenedInApp)
	assert.Equal(t, []string{out.FilePath}, viewer.paths)
	assert.Equal(t, tempDir, filepath.Dir(out.FilePath))

	onDisk, err := os.ReadFile(out.FilePath)
	require.NoError(t, err)
	assert.Equal(t, out.XML, string(onDisk))

	// Embedded resource carries the same document.
	require.Len(t, result.Content, 2)
	emb, ok := result.Content[1].(mcp.EmbeddedResource)
	require.True(t, ok)
	res, ok := emb.Resource.(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, out.ResourceURI, res.URI)
	assert.Equal(t, MIMETypeMxfile, res.MIMEType)
	assert.Equal(t, out.XML, res.Text)

	meta, err := s.store.Metadata(out.DiagramID)
	require.NoError(t, err)
	assert.Equal(t, schema.DiagramNetwork, meta.Type)
	assert.Equal(t, "Service topology", meta.Description)
	assert.Equal(t, 0, meta.ElementCount)
}

func TestCreateDiagram_PageSizeAndCompression(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleCreateDiagram(context.Background(), buildRequest("create_diagram", map[string]any{
		"title":         "Wide",
		"description":   "x",
		"diagram_type":  "custom",
		"output_format": "compressed",
		"page_width":    2000,
		"page_height":   1000,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out generatedDiagram
	unmarshalResult(t, result, &out)
	assert.NotContains(t, out.XML, "<mxGraphModel")

	src, err := mxgraph.NewWrapper(nil).Source(out.XML)
	require.NoError(t, err)
	assert.Contains(t, src, `pageWidth="2000" pageHeight="1000"`)

	meta, err := s.store.Metadata(out.DiagramID)
	require.NoError(t, err)
	assert.Equal(t, schema.FormatCompressed, meta.Format)
	assert.Equal(t, 2000.0, meta.PageWidth)
}

func TestCreateDiagram_ValidationHasNoSideEffects(t *testing.T) {
	tempDir := t.TempDir()
	viewer := &recordingViewer{}
	s := newTestServer(t, func(d *DrawioServerDeps) {
		d.TempWriter = export.NewWriter(tempDir)
		d.Viewer = viewer
	})

	result, err := s.handleCreateDiagram(context.Background(), buildRequest("create_diagram", map[string]any{
		"title":        "Broken",
		"diagram_type": "mindmap",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)

	msg := extractText(t, result)
	assert.Contains(t, msg, "invalid arguments")
	assert.Contains(t, msg, "description")
	assert.Contains(t, msg, "/diagram_type")

	assert.Empty(t, s.store.List())
	assert.Empty(t, viewer.paths)
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateFlowchart_ExampleScenario(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleCreateFlowchart(context.Background(), buildRequest("create_flowchart", map[string]any{
		"title": "Decision",
		"steps": exampleSteps(),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out flowchartResult
	unmarshalResult(t, result, &out)

	assert.Equal(t, 4, out.Shapes)
	assert.Equal(t, 3, out.Connections)
	assert.Equal(t, 4, strings.Count(out.XML, `vertex="1"`))
	assert.Equal(t, 3, strings.Count(out.XML, `edge="1"`))
	assert.Equal(t, map[string]string{"s": "cell-2", "d": "cell-3", "y": "cell-4", "n": "cell-5"}, out.ShapeIDs)
	assert.Empty(t, out.Warnings)

	assert.Contains(t, out.XML, `value="Yes" style=`)
	assert.Contains(t, out.XML, `source="cell-3" target="cell-4"`)
	assert.Contains(t, out.XML, `<mxGeometry x="420" y="360"`)
	assert.Contains(t, out.XML, `<mxGeometry x="980" y="500"`)

	meta, err := s.store.Metadata(out.DiagramID)
	require.NoError(t, err)
	assert.Equal(t, schema.DiagramFlowchart, meta.Type)
	assert.Equal(t, 4, meta.ElementCount)
	assert.Equal(t, 3, meta.ConnectionCount)
	assert.Equal(t, 1400.0, meta.PageWidth)
}

func TestCreateFlowchart_LintWarnings(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleCreateFlowchart(context.Background(), buildRequest("create_flowchart", map[string]any{
		"title": "Loose",
		"steps": []any{
			map[string]any{"id": "a", "type": "start", "text": "A", "next": []any{"ghost"}},
		},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "lint never fails a request")

	var out flowchartResult
	unmarshalResult(t, result, &out)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, strings.Join(out.Warnings, "\n"), "ghost")
	assert.Equal(t, 0, out.Connections)
}

func TestCreateFlowchart_InvalidStep(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleCreateFlowchart(context.Background(), buildRequest("create_flowchart", map[string]any{
		"title": "Bad",
		"steps": []any{map[string]any{"id": "a", "type": "loop", "text": "A"}},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "/steps/0/type")
	assert.Empty(t, s.store.List())
}

// --- Editing ---

func TestAddShape(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleAddShape(context.Background(), buildRequest("add_shape", map[string]any{
		"xml":        mxgraph.EmptyDocument(0, 0),
		"shape_type": "rounded",
		"text":       "A & B",
		"x":          100,
		"y":          50.5,
		"width":      120,
		"height":     60,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out editResult
	unmarshalResult(t, result, &out)
	assert.Equal(t, "cell-2", out.ID)
	assert.Contains(t, out.XML, `value="A &amp; B"`)
	assert.Contains(t, out.XML, "fillColor=#ffffff;strokeColor=#000000;rounded=1;")
	assert.Contains(t, out.XML, `<mxGeometry x="100" y="50.5" width="120" height="60" as="geometry"/>`)
	assert.Equal(t, []string{"cell-2"}, mxgraph.ExtractElementIDs(out.XML))
	assert.True(t, strings.HasPrefix(out.WebURL, export.WebEditorURL))
}

func TestAddShape_MissingFields(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleAddShape(context.Background(), buildRequest("add_shape", map[string]any{
		"xml":        "<x/>",
		"shape_type": "triangle",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	msg := extractText(t, result)
	assert.Contains(t, msg, "/shape_type")
	assert.Contains(t, msg, "width")
}

func shapesDoc(t *testing.T, s *DrawioServer) string {
	t.Helper()
	doc := mxgraph.EmptyDocument(0, 0)
	doc, _ = s.asm.InsertShape(doc, mxgraph.ShapeSpec{Kind: schema.ShapeRectangle, Text: "a", Width: 10, Height: 10, FillColor: "#fff", StrokeColor: "#000"})
	doc, _ = s.asm.InsertShape(doc, mxgraph.ShapeSpec{Kind: schema.ShapeRectangle, Text: "b", Width: 10, Height: 10, FillColor: "#fff", StrokeColor: "#000"})
	return doc
}

func TestAddConnection_Defaults(t *testing.T) {
	s := newTestServer(t)
	doc := shapesDoc(t, s)

	result, err := s.handleAddConnection(context.Background(), buildRequest("add_connection", map[string]any{
		"xml":       doc,
		"source_id": "cell-2",
		"target_id": "cell-3",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out editResult
	unmarshalResult(t, result, &out)
	assert.Equal(t, "cell-4", out.ID)
	assert.Contains(t, out.XML, "edgeStyle=orthogonalEdgeStyle;rounded=0;")
	assert.Contains(t, out.XML, "endArrow=classic;endFill=1;")
	assert.NotContains(t, out.XML, "startArrow")
	assert.Contains(t, out.XML, `source="cell-2" target="cell-3"`)
}

func TestAddConnection_Options(t *testing.T) {
	s := newTestServer(t)
	doc := shapesDoc(t, s)

	result, err := s.handleAddConnection(context.Background(), buildRequest("add_connection", map[string]any{
		"xml":         doc,
		"source_id":   "cell-2",
		"target_id":   "cell-3",
		"label":       "calls",
		"style":       "dashed",
		"arrow_end":   false,
		"arrow_start": true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out editResult
	unmarshalResult(t, result, &out)
	assert.Contains(t, out.XML, `value="calls"`)
	assert.Contains(t, out.XML, "dashed=1;endArrow=none;startArrow=classic;startFill=1;")
}

func TestAddConnection_UnknownIDs(t *testing.T) {
	args := func(doc string) map[string]any {
		return map[string]any{"xml": doc, "source_id": "cell-2", "target_id": "cell-99"}
	}

	t.Run("lenient", func(t *testing.T) {
		s := newTestServer(t)
		result, err := s.handleAddConnection(context.Background(), buildRequest("add_connection", args(shapesDoc(t, s))))
		require.NoError(t, err)
		assert.False(t, result.IsError)
	})

	t.Run("strict", func(t *testing.T) {
		s := newTestServer(t, func(d *DrawioServerDeps) { d.StrictConnections = true })
		result, err := s.handleAddConnection(context.Background(), buildRequest("add_connection", args(shapesDoc(t, s))))
		require.NoError(t, err)
		require.True(t, result.IsError)
		msg := extractText(t, result)
		assert.Contains(t, msg, "cell-99")
		assert.NotContains(t, msg, "cell-2")
	})
}

// --- Management ---

func newTestSaveLog(t *testing.T) *store.LibSQLSaveLog {
	t.Helper()
	l, err := store.NewLibSQLSaveLog("file:" + filepath.Join(t.TempDir(), "save.db"))
	require.NoError(t, err)
	require.NoError(t, l.Migrate(context.Background()))
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestSaveDiagram(t *testing.T) {
	saveDir := t.TempDir()
	saveLog := newTestSaveLog(t)
	s := newTestServer(t, func(d *DrawioServerDeps) {
		d.SaveWriter = export.NewWriter(saveDir)
		d.SaveLog = saveLog
	})
	ctx := context.Background()

	doc, err := mxgraph.NewWrapper(nil).Wrap(mxgraph.EmptyDocument(0, 0), "Roadmap", true)
	require.NoError(t, err)

	result, err := s.handleSaveDiagram(ctx, buildRequest("save_diagram", map[string]any{
		"xml":   doc,
		"title": "Roadmap Q3",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out saveResult
	unmarshalResult(t, result, &out)
	assert.True(t, out.Saved)
	assert.Empty(t, out.SaveError)
	assert.NotEmpty(t, out.SaveID)
	assert.Equal(t, saveDir, filepath.Dir(out.FilePath))
	assert.True(t, strings.HasPrefix(filepath.Base(out.FilePath), "roadmap_q3_"))
	assert.Equal(t, "drawio://diagram/"+out.DiagramID, out.ResourceURI)

	meta, err := s.store.Metadata(out.DiagramID)
	require.NoError(t, err)
	assert.Equal(t, schema.FormatCompressed, meta.Format)
	assert.Equal(t, out.FilePath, meta.FilePath)

	// The save shows up in the log.
	listed, err := s.handleListSavedDiagrams(ctx, buildRequest("list_saved_diagrams", map[string]any{}))
	require.NoError(t, err)
	require.False(t, listed.IsError, extractText(t, listed))

	var saved struct {
		Saved []store.SavedDiagram `json:"saved"`
		Count int                  `json:"count"`
	}
	unmarshalResult(t, listed, &saved)
	require.Equal(t, 1, saved.Count)
	assert.Equal(t, "Roadmap Q3", saved.Saved[0].Title)
	assert.Equal(t, out.DiagramID, saved.Saved[0].DiagramID)
}

func TestSaveDiagram_WriteFailureDegrades(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	saveLog := newTestSaveLog(t)
	s := newTestServer(t, func(d *DrawioServerDeps) {
		d.SaveWriter = export.NewWriter(filepath.Join(blocker, "sub"))
		d.SaveLog = saveLog
	})

	result, err := s.handleSaveDiagram(context.Background(), buildRequest("save_diagram", map[string]any{
		"xml":   mxgraph.EmptyDocument(0, 0),
		"title": "T",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out saveResult
	unmarshalResult(t, result, &out)
	assert.False(t, out.Saved)
	assert.NotEmpty(t, out.SaveError)
	assert.Empty(t, out.FilePath)
	assert.NotEmpty(t, out.DiagramID, "document is cached even when the write fails")

	entries, err := saveLog.ListSaved(context.Background(), store.SavedFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveDiagram_EmptyXMLWritesNothing(t *testing.T) {
	saveDir := t.TempDir()
	saveLog := newTestSaveLog(t)
	s := newTestServer(t, func(d *DrawioServerDeps) {
		d.SaveWriter = export.NewWriter(saveDir)
		d.SaveLog = saveLog
	})

	result, err := s.handleSaveDiagram(context.Background(), buildRequest("save_diagram", map[string]any{
		"xml":   "",
		"title": "Empty",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	msg := extractText(t, result)
	assert.Contains(t, msg, "invalid arguments")
	assert.Contains(t, msg, "/xml")

	entries, err := os.ReadDir(saveDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file is written for an empty document")
	assert.Empty(t, s.store.List())

	saved, err := saveLog.ListSaved(context.Background(), store.SavedFilter{})
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestEditingTools_RejectEmptyXML(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	shape, err := s.handleAddShape(ctx, buildRequest("add_shape", map[string]any{
		"xml": "", "shape_type": "rectangle", "text": "A",
		"x": 0, "y": 0, "width": 120, "height": 60,
	}))
	require.NoError(t, err)
	require.True(t, shape.IsError)
	assert.Contains(t, extractText(t, shape), "/xml")

	conn, err := s.handleAddConnection(ctx, buildRequest("add_connection", map[string]any{
		"xml": "", "source_id": "a", "target_id": "b",
	}))
	require.NoError(t, err)
	require.True(t, conn.IsError)
	assert.Contains(t, extractText(t, conn), "/xml")
}

func TestListSavedDiagrams_Disabled(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleListSavedDiagrams(context.Background(), buildRequest("list_saved_diagrams", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "save log is disabled")
}

func TestListDiagrams(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleCreateFlowchart(ctx, buildRequest("create_flowchart", map[string]any{
		"title": "Flow", "steps": exampleSteps(),
	}))
	require.NoError(t, err)
	_, err = s.handleCreateDiagram(ctx, buildRequest("create_diagram", map[string]any{
		"title": "Blank", "description": "d", "diagram_type": "er",
	}))
	require.NoError(t, err)

	type listing struct {
		Diagrams []store.Metadata `json:"diagrams"`
		Count    int              `json:"count"`
	}

	t.Run("all", func(t *testing.T) {
		result, err := s.handleListDiagrams(ctx, buildRequest("list_diagrams", nil))
		require.NoError(t, err)
		var out listing
		unmarshalResult(t, result, &out)
		assert.Equal(t, 2, out.Count)
	})

	t.Run("filtered", func(t *testing.T) {
		result, err := s.handleListDiagrams(ctx, buildRequest("list_diagrams", map[string]any{
			"where": `type == "flowchart" && elements > 3`,
		}))
		require.NoError(t, err)
		require.False(t, result.IsError, extractText(t, result))
		var out listing
		unmarshalResult(t, result, &out)
		require.Equal(t, 1, out.Count)
		assert.Equal(t, "Flow", out.Diagrams[0].Title)
	})

	t.Run("bad expression", func(t *testing.T) {
		result, err := s.handleListDiagrams(ctx, buildRequest("list_diagrams", map[string]any{"where": "type =="}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

// --- Preview ---

func TestRenderPreview(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("mermaid by default", func(t *testing.T) {
		result, err := s.handleRenderPreview(ctx, buildRequest("render_preview", map[string]any{
			"steps": exampleSteps(),
		}))
		require.NoError(t, err)
		require.False(t, result.IsError, extractText(t, result))
		text := extractText(t, result)
		assert.True(t, strings.HasPrefix(text, "flowchart TD"))
		assert.Contains(t, text, "n_d -->|Yes| n_y")
	})

	t.Run("ascii", func(t *testing.T) {
		result, err := s.handleRenderPreview(ctx, buildRequest("render_preview", map[string]any{
			"title": "Decision", "steps": exampleSteps(), "format": "ascii",
		}))
		require.NoError(t, err)
		text := extractText(t, result)
		assert.Contains(t, text, "=== Decision ===")
		assert.Contains(t, text, "d ─→ n [No]")
	})

	t.Run("png", func(t *testing.T) {
		result, err := s.handleRenderPreview(ctx, buildRequest("render_preview", map[string]any{
			"steps": exampleSteps(), "format": "png",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError, extractText(t, result))

		var img *mcp.ImageContent
		for _, c := range result.Content {
			if ic, ok := c.(mcp.ImageContent); ok {
				img = &ic
			}
		}
		require.NotNil(t, img)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.NotEmpty(t, img.Data)
	})

	t.Run("no document is stored", func(t *testing.T) {
		assert.Empty(t, s.store.List())
	})
}

// --- Discovery ---

func TestDiscoveryTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("list_tools minimal", func(t *testing.T) {
		result, err := s.handleListTools(ctx, buildRequest("list_tools", nil))
		require.NoError(t, err)
		var names []string
		unmarshalResult(t, result, &names)
		assert.Contains(t, names, "create_flowchart")
		assert.Len(t, names, len(s.registry.Descriptors()))
	})

	t.Run("search_tools flowchart", func(t *testing.T) {
		result, err := s.handleSearchTools(ctx, buildRequest("search_tools", map[string]any{"query": "FLOWCHART"}))
		require.NoError(t, err)
		var found []map[string]any
		unmarshalResult(t, result, &found)
		require.Len(t, found, 1)
		assert.Equal(t, "create_flowchart", found[0]["name"])
	})

	t.Run("search_tools unknown category", func(t *testing.T) {
		result, err := s.handleSearchTools(ctx, buildRequest("search_tools", map[string]any{"category": "Editing"}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		var found []map[string]any
		unmarshalResult(t, result, &found)
		assert.Empty(t, found)
		require.Len(t, result.Content, 2)
		hint := mcp.GetTextFromContent(result.Content[1])
		assert.Contains(t, hint, `unknown category "Editing"`)
		assert.Contains(t, hint, "generation, editing, management, preview, discovery")
	})

	t.Run("search_tools known category has no hint", func(t *testing.T) {
		result, err := s.handleSearchTools(ctx, buildRequest("search_tools", map[string]any{"category": "editing"}))
		require.NoError(t, err)
		assert.Len(t, result.Content, 1)
	})

	t.Run("get_tool_schema", func(t *testing.T) {
		result, err := s.handleGetToolSchema(ctx, buildRequest("get_tool_schema", map[string]any{"name": "add_shape"}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.Contains(t, extractText(t, result), `"shape_type"`)
	})

	t.Run("get_tool_schema unknown", func(t *testing.T) {
		result, err := s.handleGetToolSchema(ctx, buildRequest("get_tool_schema", map[string]any{"name": "nope"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, extractText(t, result), `tool "nope" not found`)
	})
}
