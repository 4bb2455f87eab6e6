package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/drawio-mcp/internal/diagram"
	"github.com/rendis/drawio-mcp/internal/discovery"
	"github.com/rendis/drawio-mcp/internal/export"
	"github.com/rendis/drawio-mcp/internal/logging"
	"github.com/rendis/drawio-mcp/internal/mxgraph"
	"github.com/rendis/drawio-mcp/internal/store"
	"github.com/rendis/drawio-mcp/pkg/schema"
)

// Tool names, as listed in the discovery catalog.
const (
	toolCreateFlowchart   = "create_flowchart"
	toolCreateDiagram     = "create_diagram"
	toolAddShape          = "add_shape"
	toolAddConnection     = "add_connection"
	toolSaveDiagram       = "save_diagram"
	toolListDiagrams      = "list_diagrams"
	toolListSavedDiagrams = "list_saved_diagrams"
	toolRenderPreview     = "render_preview"
	toolListTools         = "list_tools"
	toolSearchTools       = "search_tools"
	toolGetToolSchema     = "get_tool_schema"
)

// Parameter defaults shared with the catalog schemas.
const (
	defaultFillColor   = "#ffffff"
	defaultStrokeColor = "#000000"
	defaultSavedLimit  = 50
)

// --- Arguments ---

type createDiagramArgs struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	DiagramType  schema.DiagramType  `json:"diagram_type"`
	OutputFormat schema.OutputFormat `json:"output_format"`
	PageWidth    float64             `json:"page_width"`
	PageHeight   float64             `json:"page_height"`
}

type createFlowchartArgs struct {
	Title        string                 `json:"title"`
	Steps        []schema.FlowchartStep `json:"steps"`
	OutputFormat schema.OutputFormat    `json:"output_format"`
}

type addShapeArgs struct {
	XML         string           `json:"xml"`
	ShapeType   schema.ShapeKind `json:"shape_type"`
	Text        string           `json:"text"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Width       float64          `json:"width"`
	Height      float64          `json:"height"`
	FillColor   string           `json:"fill_color"`
	StrokeColor string           `json:"stroke_color"`
}

type addConnectionArgs struct {
	XML        string               `json:"xml"`
	SourceID   string               `json:"source_id"`
	TargetID   string               `json:"target_id"`
	Label      string               `json:"label"`
	Style      schema.ConnectorKind `json:"style"`
	ArrowEnd   *bool                `json:"arrow_end"`
	ArrowStart bool                 `json:"arrow_start"`
}

type saveDiagramArgs struct {
	XML   string `json:"xml"`
	Title string `json:"title"`
}

type listDiagramsArgs struct {
	Where string `json:"where"`
}

type listSavedArgs struct {
	Title string `json:"title"`
	Limit int    `json:"limit"`
}

type renderPreviewArgs struct {
	Title  string                 `json:"title"`
	Steps  []schema.FlowchartStep `json:"steps"`
	Format string                 `json:"format"`
}

type listToolsArgs struct {
	Detail discovery.Detail `json:"detail"`
}

type searchToolsArgs struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

type getToolSchemaArgs struct {
	Name string `json:"name"`
}

// --- Results ---

// generatedDiagram is returned by the generation tools.
type generatedDiagram struct {
	DiagramID   string `json:"diagram_id"`
	ResourceURI string `json:"resource_uri"`
	XML         string `json:"xml"`
	FilePath    string `json:"file_path,omitempty"`
	OpenedInApp bool   `json:"opened_in_app"`
	WebURL      string `json:"web_url"`
}

type flowchartResult struct {
	generatedDiagram
	ShapeIDs    map[string]string `json:"shape_ids"`
	Shapes      int               `json:"shapes"`
	Connections int               `json:"connections"`
	Warnings    []string          `json:"warnings,omitempty"`
}

type editResult struct {
	ID     string `json:"id"`
	XML    string `json:"xml"`
	WebURL string `json:"web_url"`
}

type saveResult struct {
	DiagramID   string `json:"diagram_id"`
	ResourceURI string `json:"resource_uri"`
	FilePath    string `json:"file_path,omitempty"`
	Saved       bool   `json:"saved"`
	SaveError   string `json:"save_error,omitempty"`
	SaveID      string `json:"save_id,omitempty"`
}

// --- Generation ---

// handleCreateDiagram creates an empty canvas.
func (s *DrawioServer) handleCreateDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createDiagramArgs
	if err := s.bind(toolCreateDiagram, req, &args); err != nil {
		return toolError(err), nil
	}

	body := mxgraph.EmptyDocument(args.PageWidth, args.PageHeight)
	wrapped, err := s.wrapper.Wrap(body, args.Title, args.OutputFormat == schema.FormatCompressed)
	if err != nil {
		return toolError(err), nil
	}

	out, err := s.publish(ctx, store.PutInput{
		Title:       args.Title,
		Description: args.Description,
		XML:         wrapped,
		Type:        args.DiagramType,
		Format:      args.OutputFormat,
		PageWidth:   args.PageWidth,
		PageHeight:  args.PageHeight,
	})
	if err != nil {
		return toolError(err), nil
	}
	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return toolError(err), nil
	}
	return attachDocument(result, out.ResourceURI, wrapped), nil
}

// handleCreateFlowchart lays out a step list as a complete flowchart.
func (s *DrawioServer) handleCreateFlowchart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createFlowchartArgs
	if err := s.bind(toolCreateFlowchart, req, &args); err != nil {
		return toolError(err), nil
	}

	lint, err := s.linter.Lint(ctx, args.Steps)
	if err != nil {
		return toolError(err), nil
	}
	for _, w := range lint.Warnings {
		s.logger.DebugContext(ctx, "flowchart lint", slog.String("code", w.Code), slog.String("path", w.Path))
	}

	res, err := s.layout.Layout(args.Title, args.Steps, args.OutputFormat)
	if err != nil {
		return toolError(err), nil
	}

	gen, err := s.publish(ctx, store.PutInput{
		Title:      args.Title,
		XML:        res.Document,
		Type:       schema.DiagramFlowchart,
		Format:     args.OutputFormat,
		PageWidth:  s.layout.Options().PageWidth,
		PageHeight: s.layout.Options().PageHeight,
	})
	if err != nil {
		return toolError(err), nil
	}

	out := flowchartResult{
		generatedDiagram: gen,
		ShapeIDs:         res.ShapeIDs,
		Shapes:           res.Shapes,
		Connections:      res.Connections,
		Warnings:         lint.WarningMessages(),
	}
	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return toolError(err), nil
	}
	return attachDocument(result, gen.ResourceURI, res.Document), nil
}

// publish writes a temp copy, caches the document and tries to open a
// viewer. File and viewer failures only degrade the result.
func (s *DrawioServer) publish(ctx context.Context, in store.PutInput) (generatedDiagram, error) {
	path, err := s.tempWriter.Write(in.XML, in.Title)
	if err != nil {
		s.logger.WarnContext(ctx, "temp export failed", slog.String("error", err.Error()))
		path = ""
	}
	in.FilePath = path

	d, err := s.store.Put(in)
	if err != nil {
		return generatedDiagram{}, err
	}
	ctx = logging.WithDiagramID(ctx, d.ID)
	s.logger.InfoContext(ctx, "diagram stored",
		slog.Int("elements", d.ElementCount),
		slog.Int("connections", d.ConnectionCount),
	)

	opened := false
	if path != "" {
		opened = s.viewer.Open(ctx, path)
	}

	return generatedDiagram{
		DiagramID:   d.ID,
		ResourceURI: d.URI,
		XML:         in.XML,
		FilePath:    path,
		OpenedInApp: opened,
		WebURL:      export.WebURL(in.XML),
	}, nil
}

// --- Editing ---

// handleAddShape inserts one vertex into a caller-supplied document.
func (s *DrawioServer) handleAddShape(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addShapeArgs
	if err := s.bind(toolAddShape, req, &args); err != nil {
		return toolError(err), nil
	}
	if args.FillColor == "" {
		args.FillColor = defaultFillColor
	}
	if args.StrokeColor == "" {
		args.StrokeColor = defaultStrokeColor
	}

	doc, id := s.asm.InsertShape(args.XML, mxgraph.ShapeSpec{
		Kind:        args.ShapeType,
		Text:        args.Text,
		X:           args.X,
		Y:           args.Y,
		Width:       args.Width,
		Height:      args.Height,
		FillColor:   args.FillColor,
		StrokeColor: args.StrokeColor,
	})
	return mcp.NewToolResultJSON(editResult{ID: id, XML: doc, WebURL: export.WebURL(doc)})
}

// handleAddConnection inserts one edge into a caller-supplied document.
func (s *DrawioServer) handleAddConnection(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addConnectionArgs
	if err := s.bind(toolAddConnection, req, &args); err != nil {
		return toolError(err), nil
	}
	if args.Style == "" {
		args.Style = schema.ConnectorOrthogonal
	}
	arrowEnd := true
	if args.ArrowEnd != nil {
		arrowEnd = *args.ArrowEnd
	}

	if s.strictConnections {
		if missing := mxgraph.MissingIDs(args.XML, args.SourceID, args.TargetID); len(missing) > 0 {
			return toolError(schema.NewErrorf(schema.ErrCodeValidation,
				"connection references unknown element ids: %s", strings.Join(missing, ", ")).
				WithDetails(map[string]any{"missing": missing})), nil
		}
	}

	doc, id := s.asm.InsertConnection(args.XML, mxgraph.ConnectionSpec{
		SourceID:   args.SourceID,
		TargetID:   args.TargetID,
		Label:      args.Label,
		Kind:       args.Style,
		ArrowEnd:   arrowEnd,
		ArrowStart: args.ArrowStart,
	})
	return mcp.NewToolResultJSON(editResult{ID: id, XML: doc, WebURL: export.WebURL(doc)})
}

// --- Management ---

// handleSaveDiagram writes a document to the save directory, caches it and
// records the save. A failed write still caches the document.
func (s *DrawioServer) handleSaveDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args saveDiagramArgs
	if err := s.bind(toolSaveDiagram, req, &args); err != nil {
		return toolError(err), nil
	}

	var out saveResult
	path, writeErr := s.saveWriter.Write(args.XML, args.Title)
	if writeErr != nil {
		s.logger.WarnContext(ctx, "save failed", slog.String("error", writeErr.Error()))
		out.SaveError = writeErr.Error()
	} else {
		out.Saved = true
		out.FilePath = path
	}

	format := schema.FormatUncompressed
	if mxgraph.IsCompressed(args.XML) {
		format = schema.FormatCompressed
	}
	d, err := s.store.Put(store.PutInput{
		Title:    args.Title,
		XML:      args.XML,
		Format:   format,
		FilePath: out.FilePath,
	})
	if err != nil {
		return toolError(err), nil
	}
	out.DiagramID = d.ID
	out.ResourceURI = d.URI
	ctx = logging.WithDiagramID(ctx, d.ID)

	if out.Saved && s.saveLog != nil {
		rec := &store.SavedDiagram{
			Title:     args.Title,
			FilePath:  path,
			DiagramID: d.ID,
			Size:      len(args.XML),
		}
		if err := s.saveLog.Record(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "record save failed", slog.String("error", err.Error()))
		} else {
			out.SaveID = rec.ID
		}
	}

	return mcp.NewToolResultJSON(out)
}

// handleListDiagrams lists cached diagrams, optionally filtered.
func (s *DrawioServer) handleListDiagrams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listDiagramsArgs
	if err := s.bind(toolListDiagrams, req, &args); err != nil {
		return toolError(err), nil
	}

	diagrams, err := store.Filter(ctx, s.filter, s.store.List(), args.Where)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultJSON(map[string]any{
		"diagrams": diagrams,
		"count":    len(diagrams),
	})
}

// handleListSavedDiagrams reads the save log.
func (s *DrawioServer) handleListSavedDiagrams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listSavedArgs
	if err := s.bind(toolListSavedDiagrams, req, &args); err != nil {
		return toolError(err), nil
	}
	if s.saveLog == nil {
		return mcp.NewToolResultError("save log is disabled"), nil
	}
	if args.Limit == 0 {
		args.Limit = defaultSavedLimit
	}

	saved, err := s.saveLog.ListSaved(ctx, store.SavedFilter{Title: args.Title, Limit: args.Limit})
	if err != nil {
		return toolError(err), nil
	}
	if saved == nil {
		saved = []*store.SavedDiagram{}
	}
	return mcp.NewToolResultJSON(map[string]any{
		"saved": saved,
		"count": len(saved),
	})
}

// --- Preview ---

// handleRenderPreview renders a step list without producing a document.
func (s *DrawioServer) handleRenderPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args renderPreviewArgs
	if err := s.bind(toolRenderPreview, req, &args); err != nil {
		return toolError(err), nil
	}

	model, err := diagram.Build(args.Title, args.Steps)
	if err != nil {
		return toolError(err), nil
	}

	switch args.Format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "png":
		png, err := diagram.RenderImage(ctx, model)
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultImage(fmt.Sprintf("preview of %d steps", len(model.Nodes)),
			base64.StdEncoding.EncodeToString(png), "image/png"), nil
	default:
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	}
}

// --- Discovery ---

func (s *DrawioServer) handleListTools(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listToolsArgs
	if err := s.bind(toolListTools, req, &args); err != nil {
		return toolError(err), nil
	}
	out, err := s.registry.ListTools(args.Detail)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *DrawioServer) handleSearchTools(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchToolsArgs
	if err := s.bind(toolSearchTools, req, &args); err != nil {
		return toolError(err), nil
	}
	out, err := s.registry.SearchTools(args.Query, args.Category)
	if err != nil {
		return toolError(err), nil
	}
	result := mcp.NewToolResultText(out)
	if args.Category != "" && !slices.Contains(s.registry.Categories(), args.Category) {
		// Still a successful, empty search; the hint lists what would match.
		result.Content = append(result.Content, mcp.NewTextContent(fmt.Sprintf(
			"unknown category %q; known categories: %s",
			args.Category, strings.Join(s.registry.Categories(), ", "))))
	}
	return result, nil
}

func (s *DrawioServer) handleGetToolSchema(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getToolSchemaArgs
	if err := s.bind(toolGetToolSchema, req, &args); err != nil {
		return toolError(err), nil
	}
	out, err := s.registry.GetToolSchema(args.Name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

// --- Internal helpers ---

// bind validates the raw arguments against the tool schema and decodes them
// into target. Nothing else runs when validation fails.
func (s *DrawioServer) bind(tool string, req mcp.CallToolRequest, target any) error {
	if err := s.validator.Validate(tool, req.GetArguments()); err != nil {
		return err
	}
	if err := req.BindArguments(target); err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid arguments").WithCause(err)
	}
	return nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// attachDocument appends the document as an embedded resource.
func attachDocument(result *mcp.CallToolResult, uri, doc string) *mcp.CallToolResult {
	result.Content = append(result.Content, mcp.NewEmbeddedResource(mcp.TextResourceContents{
		URI:      uri,
		MIMEType: MIMETypeMxfile,
		Text:     doc,
	}))
	return result
}
