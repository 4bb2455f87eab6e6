// Package store holds generated diagrams: a process-local expiring cache
// addressed by resource URIs, and a durable log of diagrams saved to disk.
package store

import (
	"context"
	"time"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

// DiagramStore caches generated documents by id.
type DiagramStore interface {
	Put(in PutInput) (*Diagram, error)
	Get(id string) (*Diagram, error)
	XML(id string) (string, error)
	Preview(id string) (string, error)
	Metadata(id string) (*Metadata, error)
	List() []Metadata
	Delete(id string) bool
	Sweep() int
}

// SaveLog records diagrams written to durable storage.
type SaveLog interface {
	Record(ctx context.Context, saved *SavedDiagram) error
	ListSaved(ctx context.Context, filter SavedFilter) ([]*SavedDiagram, error)
	GetSaved(ctx context.Context, id string) (*SavedDiagram, error)
	Close() error
}

// PutInput is the caller-supplied part of a stored diagram. Zero values
// take the defaults: type custom, format uncompressed, page 1100 x 850.
type PutInput struct {
	Title       string
	Description string
	XML         string
	Type        schema.DiagramType
	Format      schema.OutputFormat
	PageWidth   float64
	PageHeight  float64
	FilePath    string
}

// Metadata is derived from a stored document.
type Metadata struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description,omitempty"`
	Type            schema.DiagramType  `json:"type"`
	Format          schema.OutputFormat `json:"format"`
	PageWidth       float64             `json:"page_width"`
	PageHeight      float64             `json:"page_height"`
	ElementCount    int                 `json:"element_count"`
	ConnectionCount int                 `json:"connection_count"`
	Size            int                 `json:"size"`
	FilePath        string              `json:"file_path,omitempty"`
	URI             string              `json:"uri"`
	CreatedAt       time.Time           `json:"created_at"`
	ModifiedAt      time.Time           `json:"modified_at"`
	LastAccessedAt  time.Time           `json:"last_accessed_at"`
}

// FilterEnv exposes the metadata to list filters.
func (m Metadata) FilterEnv() map[string]any {
	return map[string]any{
		"id":          m.ID,
		"title":       m.Title,
		"description": m.Description,
		"type":        string(m.Type),
		"format":      string(m.Format),
		"elements":    m.ElementCount,
		"connections": m.ConnectionCount,
		"size":        m.Size,
		"file_path":   m.FilePath,
	}
}

// Diagram is a stored document with its metadata.
type Diagram struct {
	Metadata
	XML string `json:"xml"`
}

// SavedDiagram is one entry of the save log.
type SavedDiagram struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FilePath  string    `json:"file_path"`
	DiagramID string    `json:"diagram_id,omitempty"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedFilter narrows ListSaved.
type SavedFilter struct {
	Title string
	Limit int
}

func storeNotFound(resource, id string) *schema.DiagramError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}
