package mxgraph

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 3, 5, 9, 30, 15, 250*int(time.Millisecond), time.UTC)
}

type failingCodec struct{ DeflateCodec }

func (failingCodec) Compress([]byte) ([]byte, error) { return nil, errors.New("boom") }

func TestWrap_Uncompressed(t *testing.T) {
	w := NewWrapper(nil, WithClock(fixedNow))

	out, err := w.Wrap("<mxGraphModel/>", `Q&A "plan"`, false)
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>
<mxfile host="app.diagrams.net" modified="2024-03-05T09:30:15.250Z" agent="drawio-mcp" version="24.0.0" type="device">
  <diagram name="Q&amp;A &quot;plan&quot;" id="diagram-1">
    <mxGraphModel/>
  </diagram>
</mxfile>`
	assert.Equal(t, want, out)
}

func TestWrap_CompressedRoundTrip(t *testing.T) {
	w := NewWrapper(DeflateCodec{}, WithClock(fixedNow), WithAgent("test"))
	body := EmptyDocument(0, 0)

	out, err := w.Wrap(body, "t", true)
	require.NoError(t, err)
	assert.NotContains(t, out, "<mxGraphModel")
	assert.Contains(t, out, `agent="test"`)

	src, err := w.Source(out)
	require.NoError(t, err)
	assert.Equal(t, body, src)
}

func TestWrap_CodecFailure(t *testing.T) {
	w := NewWrapper(failingCodec{})
	_, err := w.Wrap("x", "t", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	out, err := w.Wrap("x", "t", false)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "\n    x\n"))
}

func TestSource_Uncompressed(t *testing.T) {
	w := NewWrapper(nil)
	body := EmptyDocument(0, 0)

	out, err := w.Wrap(body, "t", false)
	require.NoError(t, err)

	src, err := w.Source(out)
	require.NoError(t, err)
	assert.Equal(t, body, src)

	src, err = w.Source(body)
	require.NoError(t, err)
	assert.Equal(t, body, src)
}

func TestDeflateCodec_RejectsGarbage(t *testing.T) {
	_, err := DeflateCodec{}.Decompress([]byte("not base64!!"))
	assert.Error(t, err)
}

func TestIsCompressed(t *testing.T) {
	w := NewWrapper(nil, WithClock(fixedNow))
	body := EmptyDocument(0, 0)

	plain, err := w.Wrap(body, "t", false)
	require.NoError(t, err)
	packed, err := w.Wrap(body, "t", true)
	require.NoError(t, err)

	assert.False(t, IsCompressed(plain))
	assert.True(t, IsCompressed(packed))
	assert.False(t, IsCompressed(body), "bare model is not wrapped")
}
