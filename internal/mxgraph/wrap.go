package mxgraph

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultAgent is written to the mxfile agent attribute.
const DefaultAgent = "drawio-mcp"

var diagramBodyPattern = regexp.MustCompile(`(?s)<diagram\b[^>]*>\s*(.*?)\s*</diagram>`)

// Wrapper embeds document bodies in an mxfile container.
type Wrapper struct {
	codec Codec
	now   func() time.Time
	agent string
}

// WrapperOption configures a Wrapper.
type WrapperOption func(*Wrapper)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) WrapperOption {
	return func(w *Wrapper) { w.now = now }
}

// WithAgent overrides the agent attribute.
func WithAgent(agent string) WrapperOption {
	return func(w *Wrapper) { w.agent = agent }
}

// NewWrapper returns a Wrapper compressing through codec. A nil codec means
// DeflateCodec.
func NewWrapper(codec Codec, opts ...WrapperOption) *Wrapper {
	if codec == nil {
		codec = DeflateCodec{}
	}
	w := &Wrapper{codec: codec, now: time.Now, agent: DefaultAgent}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wrap returns the final file text. When compressed is set the body is
// replaced by its encoded form.
func (w *Wrapper) Wrap(body, title string, compressed bool) (string, error) {
	content := body
	if compressed {
		enc, err := w.codec.Compress([]byte(body))
		if err != nil {
			return "", fmt.Errorf("compress diagram body: %w", err)
		}
		content = string(enc)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<mxfile host="app.diagrams.net" modified="`)
	b.WriteString(w.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteString(`" agent="`)
	b.WriteString(EscapeXML(w.agent))
	b.WriteString(`" version="24.0.0" type="device">` + "\n")
	b.WriteString(`  <diagram name="`)
	b.WriteString(EscapeXML(title))
	b.WriteString(`" id="diagram-1">` + "\n")
	b.WriteString("    ")
	b.WriteString(content)
	b.WriteString("\n  </diagram>\n")
	b.WriteString("</mxfile>")
	return b.String(), nil
}

// Source returns the mxGraphModel text of a wrapped document, inflating a
// compressed body. Documents that are not wrapped are returned as is.
func (w *Wrapper) Source(doc string) (string, error) {
	m := diagramBodyPattern.FindStringSubmatch(doc)
	if m == nil {
		return doc, nil
	}
	body := m[1]
	if strings.HasPrefix(body, "<") {
		return body, nil
	}
	raw, err := w.codec.Decompress([]byte(body))
	if err != nil {
		return "", fmt.Errorf("decode diagram body: %w", err)
	}
	return string(raw), nil
}

// IsCompressed reports whether doc is a wrapped document with an encoded body.
func IsCompressed(doc string) bool {
	m := diagramBodyPattern.FindStringSubmatch(doc)
	return m != nil && m[1] != "" && !strings.HasPrefix(m[1], "<")
}
