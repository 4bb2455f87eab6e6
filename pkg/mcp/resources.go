package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/drawio-mcp/internal/store"
)

type resourceTemplate struct {
	template mcp.ResourceTemplate
	handler  server.ResourceTemplateHandlerFunc
}

// resourceTemplates exposes the three views over a cached diagram.
func (s *DrawioServer) resourceTemplates() []resourceTemplate {
	return []resourceTemplate{
		{
			template: mcp.NewResourceTemplate(
				store.ResourceURI(s.scheme, store.ViewDiagram, "{id}"),
				"diagram",
				mcp.WithTemplateDescription("Full mxfile document of a generated diagram"),
				mcp.WithTemplateMIMEType("application/xml"),
			),
			handler: s.handleReadResource,
		},
		{
			template: mcp.NewResourceTemplate(
				store.ResourceURI(s.scheme, store.ViewPreview, "{id}"),
				"diagram-preview",
				mcp.WithTemplateDescription("First 500 characters of a diagram followed by its metadata"),
				mcp.WithTemplateMIMEType("text/plain"),
			),
			handler: s.handleReadResource,
		},
		{
			template: mcp.NewResourceTemplate(
				store.ResourceURI(s.scheme, store.ViewMetadata, "{id}"),
				"diagram-metadata",
				mcp.WithTemplateDescription("Metadata of a generated diagram"),
				mcp.WithTemplateMIMEType("application/json"),
			),
			handler: s.handleReadResource,
		},
	}
}

// handleReadResource serves any of the three views. Unknown ids are
// not-found errors.
func (s *DrawioServer) handleReadResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	view, id, err := store.ParseResourceURI(s.scheme, uri)
	if err != nil {
		return nil, err
	}

	var mime, text string
	switch view {
	case store.ViewDiagram:
		mime = "application/xml"
		text, err = s.store.XML(id)
	case store.ViewPreview:
		mime = "text/plain"
		text, err = s.previewText(id)
	default:
		mime = "application/json"
		text, err = s.metadataJSON(id)
	}
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mime, Text: text},
	}, nil
}

func (s *DrawioServer) previewText(id string) (string, error) {
	preview, err := s.store.Preview(id)
	if err != nil {
		return "", err
	}
	meta, err := s.metadataJSON(id)
	if err != nil {
		return "", err
	}
	return preview + "\n\n" + meta, nil
}

func (s *DrawioServer) metadataJSON(id string) (string, error) {
	meta, err := s.store.Metadata(id)
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
