package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/compile"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
)

// WriteCSV renders the scalar variables as a table indexed by timestamp,
// one row per record. Spectral arrays do not fit a flat table and are
// omitted; use WriteJSON for the full content. Gaps render as empty cells.
func WriteCSV(w io.Writer, c *compile.Container) error {
	cw := csv.NewWriter(w)

	header := append([]string{"datetime"}, sbd.ScalarVariables()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	times := c.Times()
	for i, t := range times {
		row := make([]string, 0, len(header))
		row = append(row, t.UTC().Format(timeLayout))
		for _, name := range sbd.ScalarVariables() {
			col, _ := c.Scalar(name)
			row = append(row, formatCell(col[i]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
