package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagramError_Format(t *testing.T) {
	err := NewErrorf(ErrCodeNotFound, "diagram %q not found", "abc")
	assert.Equal(t, `[NOT_FOUND] diagram "abc" not found`, err.Error())

	err = NewError(ErrCodeValidation, "unknown shape ids").WithField("source_id")
	assert.Equal(t, "[VALIDATION_ERROR] source_id: unknown shape ids", err.Error())
}

func TestDiagramError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewError(ErrCodeExport, "write failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	wrapped := fmt.Errorf("save: %w", err)
	assert.True(t, IsCode(wrapped, ErrCodeExport))
	assert.False(t, IsCode(wrapped, ErrCodeNotFound))
	assert.False(t, IsCode(cause, ErrCodeExport))
}

func TestFlowchartStep_Label(t *testing.T) {
	s := FlowchartStep{ID: "d", Type: StepDecision, Next: []string{"a", "b"}, DecisionLabels: []string{"Yes"}}
	assert.Equal(t, "Yes", s.Label(0))
	assert.Equal(t, "", s.Label(1))
}
