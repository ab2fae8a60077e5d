package sbd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeFillsHeaderDefaults(t *testing.T) {
	layout := wave52Layout(false)

	payload, err := Encode(layout, map[string][]float64{})
	require.NoError(t, err)
	require.Len(t, payload, 327)
	require.Equal(t, PayloadTypeSensor, payload[0])
	require.Equal(t, byte(SensorWave52), payload[1])
	// payload_size little-endian at bytes 3-4
	require.Equal(t, byte(327&0xff), payload[3])
	require.Equal(t, byte(327>>8), payload[4])
}

func TestEncodeRejectsWrongArrayLength(t *testing.T) {
	layout := wave52Layout(false)

	_, err := Encode(layout, map[string][]float64{
		"energy_density": {1, 2, 3},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "energy_density")
}

func TestEncodeFixedPointTruncation(t *testing.T) {
	layout := wave52Layout(false)
	f, ok := layout.Field("a1")
	require.True(t, ok)

	cases := []struct {
		value float64
		raw   int8
	}{
		{0.37, 37},   // exact multiple survives division noise
		{-0.37, -37},
		{0.376, 37},  // truncated toward zero, not rounded
		{-0.376, -37},
		{0, 0},
	}
	for _, tc := range cases {
		vals := map[string][]float64{"a1": fillValue(tc.value)}
		payload, err := Encode(layout, vals)
		require.NoError(t, err)
		require.Equal(t, tc.raw, int8(payload[f.Offset]), "value %v", tc.value)
	}
}

func fillValue(v float64) []float64 {
	out := make([]float64, SpectralBins)
	for i := range out {
		out[i] = v
	}
	return out
}
