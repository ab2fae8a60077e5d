package export

import (
	"encoding/json"
	"io"
	"math"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/compile"
)

// WriteJSON renders the container as a JSON document with one array per
// variable, aligned to the "datetime" array. NaN gaps become nulls, since
// JSON has no NaN literal.
func WriteJSON(w io.Writer, c *compile.Container) error {
	doc := map[string]any{
		"id":       c.BuoyID(),
		"datetime": formatTimes(c.Times()),
	}
	for _, name := range c.Variables() {
		if col, ok := c.Scalar(name); ok {
			doc[name] = nullableScalars(col)
			continue
		}
		if col, ok := c.Vector(name); ok {
			doc[name] = nullableVectors(col)
		}
	}
	doc["errors"] = errorDocs(c)

	enc := json.NewEncoder(w)
	return enc.Encode(doc)
}

// WriteErrorsJSON renders only the container's error records.
func WriteErrorsJSON(w io.Writer, c *compile.Container) error {
	return json.NewEncoder(w).Encode(errorDocs(c))
}

func nullableScalars(col []float64) []any {
	out := make([]any, len(col))
	for i, v := range col {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = nil
		} else {
			out[i] = v
		}
	}
	return out
}

func nullableVectors(col [][]float64) []any {
	out := make([]any, len(col))
	for i, row := range col {
		if row == nil {
			out[i] = nil
		} else {
			out[i] = nullableScalars(row)
		}
	}
	return out
}

func errorDocs(c *compile.Container) []map[string]any {
	docs := make([]map[string]any, 0, c.ErrorCount())
	for _, e := range c.Errors() {
		doc := map[string]any{
			"file_name": e.Name,
			"error":     e.Kind.Error(),
			"detail":    e.Detail,
		}
		if !e.Time.IsZero() {
			doc["datetime"] = e.Time.UTC().Format(timeLayout)
		}
		docs = append(docs, doc)
	}
	return docs
}
