// Package compile turns batches of raw SBD messages into chronologically
// ordered per-variable time series. It is the single synchronization point
// of the engine: decoding may run on a worker pool, but the merge implemented
// here makes the output independent of decode execution order.
package compile

import (
	"math"
	"time"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
)

// Container is the compiled output: a shared ascending timestamp axis with
// per-variable columns aligned to it, plus the ordered error records. It is
// an immutable snapshot; accessors return the underlying slices and callers
// must not modify them.
type Container struct {
	buoyID  string
	times   []time.Time
	scalars map[string][]float64   // NaN where a record lacks the variable
	vectors map[string][][]float64 // nil row where a record lacks the variable
	errs    []sbd.ErrorRecord
}

// newContainer creates an empty container carrying every catalog variable.
func newContainer(buoyID string) *Container {
	c := &Container{
		buoyID:  buoyID,
		times:   []time.Time{},
		scalars: make(map[string][]float64),
		vectors: make(map[string][][]float64),
		errs:    []sbd.ErrorRecord{},
	}
	for _, name := range sbd.ScalarVariables() {
		c.scalars[name] = []float64{}
	}
	for _, name := range sbd.VectorVariables() {
		c.vectors[name] = [][]float64{}
	}
	return c
}

// append adds one record to every column, filling gaps for variables the
// record's sensor type does not transmit. Records must be appended in final
// chronological order.
func (c *Container) append(r sbd.Record) {
	c.times = append(c.times, r.Time())
	scalars := r.Scalars()
	for name := range c.scalars {
		v, ok := scalars[name]
		if !ok {
			v = math.NaN()
		}
		c.scalars[name] = append(c.scalars[name], v)
	}
	vectors := r.Vectors()
	for name := range c.vectors {
		c.vectors[name] = append(c.vectors[name], vectors[name])
	}
}

// BuoyID returns the buoy the container was compiled for.
func (c *Container) BuoyID() string { return c.buoyID }

// Len returns the number of decoded records on the time axis.
func (c *Container) Len() int { return len(c.times) }

// Times returns the shared ascending timestamp axis.
func (c *Container) Times() []time.Time { return c.times }

// Variables enumerates every variable name in catalog order.
func (c *Container) Variables() []string {
	var names []string
	for _, v := range sbd.Variables {
		names = append(names, v.Name)
	}
	return names
}

// Scalar returns the column for a scalar variable, aligned to Times.
func (c *Container) Scalar(name string) ([]float64, bool) {
	col, ok := c.scalars[name]
	return col, ok
}

// Vector returns the column for a spectral variable, aligned to Times.
func (c *Container) Vector(name string) ([][]float64, bool) {
	col, ok := c.vectors[name]
	return col, ok
}

// Errors returns the chronologically ordered error records.
func (c *Container) Errors() []sbd.ErrorRecord { return c.errs }

// ErrorCount returns the number of error records.
func (c *Container) ErrorCount() int { return len(c.errs) }
