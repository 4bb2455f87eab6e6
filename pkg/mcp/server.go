package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/drawio-mcp/internal/discovery"
	"github.com/rendis/drawio-mcp/internal/export"
	"github.com/rendis/drawio-mcp/internal/expressions"
	"github.com/rendis/drawio-mcp/internal/flowchart"
	"github.com/rendis/drawio-mcp/internal/logging"
	"github.com/rendis/drawio-mcp/internal/mxgraph"
	"github.com/rendis/drawio-mcp/internal/store"
	"github.com/rendis/drawio-mcp/internal/validation"
)

// MIMETypeMxfile is the media type of wrapped documents.
const MIMETypeMxfile = "application/vnd.jgraph.mxfile"

const instructions = "drawio-mcp generates draw.io (mxGraphModel) diagrams. Use create_flowchart for a complete " +
	"flowchart from a step list, or create_diagram followed by add_shape and add_connection to build a diagram " +
	"incrementally, passing the returned xml to each next call. save_diagram writes the result to disk. Use " +
	"list_tools, search_tools and get_tool_schema to discover parameters, and render_preview for a quick " +
	"mermaid, ASCII or PNG sketch of a step list."

// DrawioServerDeps holds the dependencies for creating a DrawioServer.
// Nil collaborators get in-process defaults.
type DrawioServerDeps struct {
	Registry  *discovery.Registry
	Validator *validation.ArgValidator
	Linter    *validation.Linter
	Store     store.DiagramStore
	SaveLog   store.SaveLog // optional; list_saved_diagrams fails without it
	Scheme    string

	IDs     *mxgraph.IDGenerator
	Wrapper *mxgraph.Wrapper
	Layout  flowchart.Options
	Filter  *expressions.ExprEngine

	TempWriter *export.Writer
	SaveWriter *export.Writer
	Viewer     export.Viewer

	// StrictConnections rejects add_connection calls naming unknown ids.
	StrictConnections bool

	Version string
	Logger  *slog.Logger
}

// DrawioServer wraps an MCP server with diagram tool handlers.
type DrawioServer struct {
	registry  *discovery.Registry
	validator *validation.ArgValidator
	linter    *validation.Linter
	store     store.DiagramStore
	saveLog   store.SaveLog
	scheme    string

	asm     *mxgraph.Assembler
	wrapper *mxgraph.Wrapper
	layout  *flowchart.Engine
	filter  *expressions.ExprEngine

	tempWriter *export.Writer
	saveWriter *export.Writer
	viewer     export.Viewer

	strictConnections bool

	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewDrawioServer creates a DrawioServer with every catalog tool and the
// three resource templates registered.
func NewDrawioServer(deps DrawioServerDeps) (*DrawioServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(logging.NewCorrelationHandler(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	}

	registry := deps.Registry
	if registry == nil {
		r, err := discovery.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("load tool catalog: %w", err)
		}
		registry = r
	}

	validator := deps.Validator
	if validator == nil {
		v, err := validation.NewArgValidator(toolSchemas(registry))
		if err != nil {
			return nil, fmt.Errorf("compile tool schemas: %w", err)
		}
		validator = v
	}

	linter := deps.Linter
	if linter == nil {
		l, err := validation.NewLinter()
		if err != nil {
			return nil, fmt.Errorf("compile lint rules: %w", err)
		}
		linter = l
	}

	scheme := deps.Scheme
	if scheme == "" {
		scheme = store.DefaultScheme
	}

	diagrams := deps.Store
	if diagrams == nil {
		diagrams = store.NewMemoryStore(store.MemoryOptions{Scheme: scheme, Logger: logger})
	}

	ids := deps.IDs
	if ids == nil {
		ids = mxgraph.NewIDGenerator()
	}
	wrapper := deps.Wrapper
	if wrapper == nil {
		wrapper = mxgraph.NewWrapper(mxgraph.DeflateCodec{})
	}
	asm := mxgraph.NewAssembler(ids)

	filter := deps.Filter
	if filter == nil {
		filter = expressions.NewExprEngine()
	}

	tempWriter := deps.TempWriter
	if tempWriter == nil {
		tempWriter = export.NewWriter(filepath.Join(os.TempDir(), "drawio-mcp"))
	}
	saveWriter := deps.SaveWriter
	if saveWriter == nil {
		home, _ := os.UserHomeDir()
		saveWriter = export.NewWriter(filepath.Join(home, "Downloads"))
	}
	viewer := deps.Viewer
	if viewer == nil {
		viewer = export.NopViewer{}
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &DrawioServer{
		registry:          registry,
		validator:         validator,
		linter:            linter,
		store:             diagrams,
		saveLog:           deps.SaveLog,
		scheme:            scheme,
		asm:               asm,
		wrapper:           wrapper,
		layout:            flowchart.NewEngine(asm, wrapper, deps.Layout),
		filter:            filter,
		tempWriter:        tempWriter,
		saveWriter:        saveWriter,
		viewer:            viewer,
		strictConnections: deps.StrictConnections,
		logger:            logger,
	}

	mcpSrv := server.NewMCPServer(
		"drawio-mcp",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	tools, err := s.tools()
	if err != nil {
		return nil, err
	}
	mcpSrv.AddTools(tools...)
	for _, rt := range s.resourceTemplates() {
		mcpSrv.AddResourceTemplate(rt.template, rt.handler)
	}

	s.mcpServer = mcpSrv
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *DrawioServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// HTTPHandler returns the streamable HTTP transport for mounting on a router.
func (s *DrawioServer) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *DrawioServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Store returns the diagram cache shared with other surfaces.
func (s *DrawioServer) Store() store.DiagramStore {
	return s.store
}

// Scheme returns the resource URI scheme.
func (s *DrawioServer) Scheme() string {
	return s.scheme
}

// tools pairs every catalog descriptor with its handler.
func (s *DrawioServer) tools() ([]server.ServerTool, error) {
	handlers := map[string]server.ToolHandlerFunc{
		toolCreateFlowchart:   s.handleCreateFlowchart,
		toolCreateDiagram:     s.handleCreateDiagram,
		toolAddShape:          s.handleAddShape,
		toolAddConnection:     s.handleAddConnection,
		toolSaveDiagram:       s.handleSaveDiagram,
		toolListDiagrams:      s.handleListDiagrams,
		toolListSavedDiagrams: s.handleListSavedDiagrams,
		toolRenderPreview:     s.handleRenderPreview,
		toolListTools:         s.handleListTools,
		toolSearchTools:       s.handleSearchTools,
		toolGetToolSchema:     s.handleGetToolSchema,
	}

	descriptors := s.registry.Descriptors()
	out := make([]server.ServerTool, 0, len(descriptors))
	for _, d := range descriptors {
		h, ok := handlers[d.Name]
		if !ok {
			return nil, fmt.Errorf("no handler for catalog tool %q", d.Name)
		}
		out = append(out, server.ServerTool{
			Tool:    mcp.NewToolWithRawSchema(d.Name, d.Description, d.Schema),
			Handler: s.instrument(d.Name, h),
		})
	}
	return out, nil
}

// instrument tags the call with a request id and logs its outcome.
func (s *DrawioServer) instrument(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = logging.WithIDs(ctx, uuid.NewString(), name)
		start := time.Now()
		s.logger.DebugContext(ctx, "tool call started")

		result, err := h(ctx, req)

		elapsed := slog.Duration("duration", time.Since(start))
		switch {
		case err != nil:
			s.logger.ErrorContext(ctx, "tool call errored", elapsed, slog.String("error", err.Error()))
		case result != nil && result.IsError:
			s.logger.WarnContext(ctx, "tool call failed", elapsed, slog.String("error", resultText(result)))
		default:
			s.logger.InfoContext(ctx, "tool call finished", elapsed)
		}
		return result, err
	}
}

func toolSchemas(r *discovery.Registry) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for _, d := range r.Descriptors() {
		out[d.Name] = d.Schema
	}
	return out
}

func resultText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	return mcp.GetTextFromContent(result.Content[0])
}
