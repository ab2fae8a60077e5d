package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/compile"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
)

var (
	sampleTime  = time.Date(2022, 9, 27, 0, 0, 0, 0, time.UTC)
	sampleTime2 = sampleTime.Add(time.Hour)
)

func spectrum(v float64) []float64 {
	out := make([]float64, sbd.SpectralBins)
	for i := range out {
		out[i] = v
	}
	return out
}

// testContainer compiles a two-record container for buoy 019: one compact
// wave record, one record of the variant without salinity, plus a single
// buoy-reported error. The mix leaves NaN gaps in both directions.
func testContainer(t *testing.T) *compile.Container {
	t.Helper()
	reg, err := sbd.NewRegistry()
	require.NoError(t, err)

	l52, ok := reg.Resolve(sbd.SensorWave52, 327)
	require.True(t, ok)
	p52, err := sbd.Encode(l52, map[string][]float64{
		"significant_height": {1.2}, "peak_period": {9}, "peak_direction": {200},
		"energy_density": spectrum(0.3), "fmin": {0.05}, "fmax": {0.5},
		"a1": spectrum(0.1), "b1": spectrum(0.1), "a2": spectrum(0.1), "b2": spectrum(0.1),
		"check":    spectrum(1),
		"latitude": {47.5}, "longitude": {-122.25},
		"temperature": {11}, "salinity": {30}, "voltage": {4},
		"epoch": {float64(sampleTime.Unix())},
	})
	require.NoError(t, err)

	l51, ok := reg.Resolve(sbd.SensorWave51, 249)
	require.True(t, ok)
	p51, err := sbd.Encode(l51, map[string][]float64{
		"significant_height": {1.5}, "peak_period": {11}, "peak_direction": {190},
		"energy_density": spectrum(0.4),
		"fmin":           {0.1}, "fmax": {0.5}, "fstep": {0.01},
		"latitude": {47.7}, "longitude": {-122.4},
		"temperature": {10}, "voltage": {4},
		"u_mean": {0.3}, "v_mean": {-0.2}, "z_mean": {1.5},
		"year": {2022}, "month": {9}, "day": {27}, "hour": {1}, "minute": {0}, "second": {0},
	})
	require.NoError(t, err)

	msgs := []sbd.RawMessage{
		{Name: "a.sbd", BuoyID: "019", Captured: sampleTime.Add(time.Minute), Payload: p52},
		{Name: "b.sbd", BuoyID: "019", Captured: sampleTime2.Add(time.Minute), Payload: p51},
		{Name: "c.sbd", BuoyID: "019", Captured: sampleTime2.Add(2 * time.Minute),
			Payload: []byte("sensor fault: IMU offline")},
	}

	c := compile.NewCompiler(sbd.NewDecoder(reg), 1)
	out, err := c.Compile(context.Background(), "019", sampleTime, sampleTime.Add(2*time.Hour), msgs)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	return out
}

func TestAsMapKeys(t *testing.T) {
	c := testContainer(t)
	m := AsMap(c)

	require.Equal(t, "019", m["id"])
	require.Equal(t, c.Times(), m["datetime"])
	require.Contains(t, m, "errors")
	for _, name := range c.Variables() {
		require.Contains(t, m, name)
	}
}

func TestWriteJSON(t *testing.T) {
	c := testContainer(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, c))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.Equal(t, "019", doc["id"])
	require.Equal(t,
		[]any{"2022-09-27T00:00:00Z", "2022-09-27T01:00:00Z"},
		doc["datetime"])

	// The second record's sensor type has no salinity; the gap must render
	// as null, not NaN.
	salinity, ok := doc["salinity"].([]any)
	require.True(t, ok)
	require.Len(t, salinity, 2)
	require.NotNil(t, salinity[0])
	require.Nil(t, salinity[1])

	// Spectral gaps are whole-row nulls.
	a1, ok := doc["a1"].([]any)
	require.True(t, ok)
	require.NotNil(t, a1[0])
	require.Nil(t, a1[1])

	errs, ok := doc["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	errDoc := errs[0].(map[string]any)
	require.Equal(t, "c.sbd", errDoc["file_name"])
	require.Equal(t, "sensor fault: IMU offline", errDoc["detail"])
}

func TestWriteErrorsJSON(t *testing.T) {
	c := testContainer(t)

	var buf bytes.Buffer
	require.NoError(t, WriteErrorsJSON(&buf, c))

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 1)
	require.Equal(t, "c.sbd", docs[0]["file_name"])
}

func TestWriteCSV(t *testing.T) {
	c := testContainer(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, c))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 records

	header := rows[0]
	require.Equal(t, "datetime", header[0])
	require.Equal(t, append([]string{"datetime"}, sbd.ScalarVariables()...), header)

	require.Equal(t, "2022-09-27T00:00:00Z", rows[1][0])
	require.Equal(t, "2022-09-27T01:00:00Z", rows[2][0])

	// Salinity column: value for the first record, empty cell for the second.
	salIdx := -1
	for i, name := range header {
		if name == "salinity" {
			salIdx = i
		}
	}
	require.NotEqual(t, -1, salIdx)
	require.NotEmpty(t, rows[1][salIdx])
	require.Empty(t, rows[2][salIdx])
}

func TestWriteKML(t *testing.T) {
	c := testContainer(t)

	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, c))
	kml := buf.String()

	require.Contains(t, kml, "<name>microSWIFT 019 drift track</name>")
	require.Contains(t, kml, "<LineString>")
	// Longitude first per the KML coordinate convention.
	require.Contains(t, kml, "-122.250000,47.500000,0")
	require.Less(t, strings.Index(kml, "-122.250000"), strings.Index(kml, "47.500000"))
}

func TestTrackFileName(t *testing.T) {
	start := time.Date(2022, 9, 26, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 9, 28, 4, 0, 0, 0, time.UTC)
	require.Equal(t,
		"microSWIFT019_2022-09-26T00Z_to_2022-09-28T04Z.kml",
		TrackFileName("019", start, end))
}
