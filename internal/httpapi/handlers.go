package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rendis/drawio-mcp/internal/export"
	"github.com/rendis/drawio-mcp/internal/logging"
	"github.com/rendis/drawio-mcp/internal/store"
	"github.com/rendis/drawio-mcp/pkg/schema"
)

// MIMETypeMxfile is the registered media type of draw.io files.
const MIMETypeMxfile = "application/vnd.jgraph.mxfile"

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"diagrams": len(s.deps.Store.List()),
	})
}

// handleListDiagrams lists cached diagrams, filtered by the optional where
// expression.
func (s *Server) handleListDiagrams(c echo.Context) error {
	all := s.deps.Store.List()
	where := c.QueryParam("where")

	if where != "" && s.deps.Filter == nil {
		return writeError(c, http.StatusNotImplemented, "FILTER_DISABLED", "list filters are not enabled")
	}
	diagrams, err := store.Filter(c.Request().Context(), s.deps.Filter, all, where)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"diagrams": diagrams,
		"count":    len(diagrams),
	})
}

// handleDownload sends the stored document as a .drawio attachment.
func (s *Server) handleDownload(c echo.Context) error {
	d, err := s.deps.Store.Get(c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	ctx := logging.WithDiagramID(c.Request().Context(), d.ID)
	s.deps.Logger.DebugContext(ctx, "diagram downloaded")

	name := export.FileName(d.Title, d.CreatedAt)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, MIMETypeMxfile, []byte(d.XML))
}

// handleDelete evicts a diagram from the cache. Files already exported for
// it are left alone.
func (s *Server) handleDelete(c echo.Context) error {
	id := c.Param("id")
	if !s.deps.Store.Delete(id) {
		return writeDomainError(c, schema.NewErrorf(schema.ErrCodeNotFound, "diagram %q not found", id))
	}
	ctx := logging.WithDiagramID(c.Request().Context(), id)
	s.deps.Logger.InfoContext(ctx, "diagram deleted")
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMetadata(c echo.Context) error {
	meta, err := s.deps.Store.Metadata(c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, meta)
}

// handleSource returns the mxGraphModel body, inflated when the stored
// document is compressed.
func (s *Server) handleSource(c echo.Context) error {
	doc, err := s.deps.Store.XML(c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	src, err := s.deps.Wrapper.Source(doc)
	if err != nil {
		return writeError(c, http.StatusUnprocessableEntity, "DECODE_ERROR", err.Error())
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, []byte(src))
}

// handleGetSaved returns one save log entry.
func (s *Server) handleGetSaved(c echo.Context) error {
	if s.deps.SaveLog == nil {
		return writeError(c, http.StatusNotImplemented, "SAVE_LOG_DISABLED", "save log is disabled")
	}
	saved, err := s.deps.SaveLog.GetSaved(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}
