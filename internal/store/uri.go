package store

import (
	"regexp"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

// DefaultScheme prefixes resource URIs.
const DefaultScheme = "drawio"

// Resource views over one stored diagram.
const (
	ViewDiagram  = "diagram"
	ViewPreview  = "preview"
	ViewMetadata = "metadata"
)

var uriPattern = regexp.MustCompile(`^([a-z][a-z0-9+.-]*)://(diagram|preview|metadata)/(.+)$`)

// ResourceURI builds scheme://view/id.
func ResourceURI(scheme, view, id string) string {
	return scheme + "://" + view + "/" + id
}

// ParseResourceURI splits a resource URI into view and id.
func ParseResourceURI(scheme, uri string) (view, id string, err error) {
	m := uriPattern.FindStringSubmatch(uri)
	if m == nil || m[1] != scheme {
		return "", "", schema.NewErrorf(schema.ErrCodeNotFound, "resource %q not found", uri)
	}
	return m[2], m[3], nil
}
