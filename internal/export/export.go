// Package export renders a compiled series container into caller-facing
// representations: a generic map, a CSV table, JSON text, or a KML drift
// track. Every function is a pure conversion; none alters the container's
// ordering or values.
package export

import (
	"time"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/compile"
)

// AsMap returns the generic variable→ordered-values view of the container:
// "id", "datetime", every catalog variable, and "errors".
func AsMap(c *compile.Container) map[string]any {
	out := map[string]any{
		"id":       c.BuoyID(),
		"datetime": c.Times(),
	}
	for _, name := range c.Variables() {
		if col, ok := c.Scalar(name); ok {
			out[name] = col
			continue
		}
		if col, ok := c.Vector(name); ok {
			out[name] = col
		}
	}
	out["errors"] = c.Errors()
	return out
}

// timeLayout is the timestamp format used by all textual exports.
const timeLayout = time.RFC3339

func formatTimes(times []time.Time) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.UTC().Format(timeLayout)
	}
	return out
}
