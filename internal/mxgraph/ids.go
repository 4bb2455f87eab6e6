package mxgraph

import (
	"strconv"
	"sync/atomic"
)

// firstCellID is the first id handed out; 0 and 1 are the canvas root and
// the default layer.
const firstCellID = 2

// IDGenerator allocates element ids of the form "cell-N". The zero value is
// ready to use and safe for concurrent callers.
type IDGenerator struct {
	issued atomic.Int64
}

// NewIDGenerator returns a generator whose first id is "cell-2".
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next id.
func (g *IDGenerator) Next() string {
	n := g.issued.Add(1) - 1 + firstCellID
	return "cell-" + strconv.FormatInt(n, 10)
}

// Reset rewinds the sequence to "cell-2".
func (g *IDGenerator) Reset() {
	g.issued.Store(0)
}
