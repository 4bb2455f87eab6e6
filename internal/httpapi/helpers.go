package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response.
func writeError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, errorBody{Code: code, Message: msg})
}

// writeDomainError maps a DiagramError code to an HTTP status.
func writeDomainError(c echo.Context, err error) error {
	var de *schema.DiagramError
	if !errors.As(err, &de) {
		return writeError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
	}

	status := http.StatusInternalServerError
	switch de.Code {
	case schema.ErrCodeNotFound:
		status = http.StatusNotFound
	case schema.ErrCodeValidation:
		status = http.StatusBadRequest
	}
	return writeError(c, status, de.Code, de.Message)
}
