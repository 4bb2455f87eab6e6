package mxgraph

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

// Default page size of an empty canvas.
const (
	DefaultPageWidth  = 1100
	DefaultPageHeight = 850
)

// rootMarker closes the element list; new cells are inserted before it.
const rootMarker = "</root>"

var cellIDPattern = regexp.MustCompile(`<mxCell id="([^"]+)"`)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes the five XML special characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// ShapeSpec describes a vertex to insert.
type ShapeSpec struct {
	Kind        schema.ShapeKind
	Text        string
	X, Y        float64
	Width       float64
	Height      float64
	FillColor   string
	StrokeColor string
}

// ConnectionSpec describes an edge to insert. An empty Label emits no value
// attribute.
type ConnectionSpec struct {
	SourceID   string
	TargetID   string
	Label      string
	Kind       schema.ConnectorKind
	ArrowEnd   bool
	ArrowStart bool
}

// Assembler builds and mutates mxGraphModel documents as text. Documents are
// values; the assembler only owns the id sequence.
type Assembler struct {
	ids *IDGenerator
}

// NewAssembler returns an assembler allocating ids from ids. A nil
// generator gets a private one.
func NewAssembler(ids *IDGenerator) *Assembler {
	if ids == nil {
		ids = NewIDGenerator()
	}
	return &Assembler{ids: ids}
}

// IDs returns the generator backing this assembler.
func (a *Assembler) IDs() *IDGenerator {
	return a.ids
}

// EmptyDocument returns a model holding only the two reserved root cells.
// Zero dimensions fall back to the default page size.
func EmptyDocument(width, height float64) string {
	if width == 0 {
		width = DefaultPageWidth
	}
	if height == 0 {
		height = DefaultPageHeight
	}

	var b strings.Builder
	b.WriteString(`<mxGraphModel dx="1394" dy="747" grid="1" gridSize="10" guides="1" tooltips="1" connect="1" arrows="1" fold="1" page="1" pageScale="1" pageWidth="`)
	b.WriteString(formatNumber(width))
	b.WriteString(`" pageHeight="`)
	b.WriteString(formatNumber(height))
	b.WriteString(`" math="0" shadow="0">` + "\n")
	b.WriteString("  <root>\n")
	b.WriteString(`    <mxCell id="0"/>` + "\n")
	b.WriteString(`    <mxCell id="1" parent="0"/>` + "\n")
	b.WriteString("  </root>\n")
	b.WriteString("</mxGraphModel>")
	return b.String()
}

// InsertShape appends a vertex to doc and returns the new document and the
// allocated id. A doc without a root marker is returned unchanged.
func (a *Assembler) InsertShape(doc string, s ShapeSpec) (string, string) {
	id := a.ids.Next()

	var b strings.Builder
	b.WriteString(`    <mxCell id="`)
	b.WriteString(id)
	b.WriteString(`" value="`)
	b.WriteString(EscapeXML(s.Text))
	b.WriteString(`" style="`)
	b.WriteString(ShapeStyle(s.Kind, s.FillColor, s.StrokeColor))
	b.WriteString(`" vertex="1" parent="1">` + "\n")
	b.WriteString(`      <mxGeometry x="`)
	b.WriteString(formatNumber(s.X))
	b.WriteString(`" y="`)
	b.WriteString(formatNumber(s.Y))
	b.WriteString(`" width="`)
	b.WriteString(formatNumber(s.Width))
	b.WriteString(`" height="`)
	b.WriteString(formatNumber(s.Height))
	b.WriteString(`" as="geometry"/>` + "\n")
	b.WriteString(`    </mxCell>`)

	return insertCell(doc, b.String()), id
}

// InsertConnection appends an edge to doc. Source and target are not
// checked against the document.
func (a *Assembler) InsertConnection(doc string, c ConnectionSpec) (string, string) {
	id := a.ids.Next()

	var b strings.Builder
	b.WriteString(`    <mxCell id="`)
	b.WriteString(id)
	b.WriteString(`"`)
	if c.Label != "" {
		b.WriteString(` value="`)
		b.WriteString(EscapeXML(c.Label))
		b.WriteString(`"`)
	}
	b.WriteString(` style="`)
	b.WriteString(ConnectionStyle(c.Kind, c.ArrowEnd, c.ArrowStart))
	b.WriteString(`" edge="1" parent="1" source="`)
	b.WriteString(EscapeXML(c.SourceID))
	b.WriteString(`" target="`)
	b.WriteString(EscapeXML(c.TargetID))
	b.WriteString(`">` + "\n")
	b.WriteString(`      <mxGeometry relative="1" as="geometry"/>` + "\n")
	b.WriteString(`    </mxCell>`)

	return insertCell(doc, b.String()), id
}

// ExtractElementIDs returns the ids of all cells in doc except the two
// reserved roots, in document order.
func ExtractElementIDs(doc string) []string {
	var ids []string
	for _, m := range cellIDPattern.FindAllStringSubmatch(doc, -1) {
		if m[1] == "0" || m[1] == "1" {
			continue
		}
		ids = append(ids, m[1])
	}
	return ids
}

// MissingIDs returns the entries of want that name no cell of doc. The
// reserved roots always exist.
func MissingIDs(doc string, want ...string) []string {
	have := map[string]struct{}{"0": {}, "1": {}}
	for _, id := range ExtractElementIDs(doc) {
		have[id] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func insertCell(doc, cell string) string {
	return strings.Replace(doc, rootMarker, cell+"\n  "+rootMarker, 1)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
