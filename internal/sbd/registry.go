package sbd

import (
	"fmt"
)

// SpectralBins is the number of frequency bins in every spectral array.
const SpectralBins = 42

// Registry holds the binary layouts for all supported sensor types. It is
// built once at startup, validated, and never mutated afterwards; the decoder
// receives it by injection rather than through package state.
type Registry struct {
	layouts map[SensorType][]Layout
}

// NewRegistry constructs the layout registry from the fixed firmware tables
// and validates it. A supported sensor type with no layout, or a layout whose
// fields do not tile its declared size, indicates the engine itself is
// misconfigured and is returned as a fatal error.
func NewRegistry() (*Registry, error) {
	r := &Registry{layouts: map[SensorType][]Layout{
		SensorWave50: {wave50Layout()},
		SensorWave51: {wave51Layout()},
		SensorWave52: {wave52Layout(false), wave52Layout(true)},
	}}
	for _, st := range SupportedSensorTypes {
		variants, ok := r.layouts[st]
		if !ok || len(variants) == 0 {
			return nil, fmt.Errorf("registry misconfigured: no layout for supported sensor type %d", st)
		}
		for _, l := range variants {
			if err := checkLayout(l); err != nil {
				return nil, fmt.Errorf("registry misconfigured: sensor type %d %s: %w", st, l.Variant, err)
			}
		}
	}
	return r, nil
}

// Layouts returns every registered variant for a sensor type.
func (r *Registry) Layouts(st SensorType) ([]Layout, error) {
	variants, ok := r.layouts[st]
	if !ok {
		return nil, fmt.Errorf("sensor type %d: %w", st, ErrUnknownSensorType)
	}
	return variants, nil
}

// Resolve picks the variant whose wire size matches the payload length.
func (r *Registry) Resolve(st SensorType, size int) (Layout, bool) {
	for _, l := range r.layouts[st] {
		if l.Size == size {
			return l, true
		}
	}
	return Layout{}, false
}

// checkLayout verifies that fields are contiguous from offset zero and sum to
// the declared size.
func checkLayout(l Layout) error {
	offset := 0
	for _, f := range l.Fields {
		if f.Offset != offset {
			return fmt.Errorf("field %s at offset %d, want %d", f.Name, f.Offset, offset)
		}
		if f.Enc.Width() == 0 || f.Count <= 0 {
			return fmt.Errorf("field %s has no width", f.Name)
		}
		offset += f.width()
	}
	if offset != l.Size {
		return fmt.Errorf("fields cover %d bytes, size is %d", offset, l.Size)
	}
	return nil
}

// header fields common to every sensor payload.
func sensorHeader(b *layoutBuilder) *layoutBuilder {
	return b.
		field("payload_type", Char, 1).
		field("sensor_type", Int8, 1).
		field("com_port", Int8, 1).
		field("payload_size", Int16, 1)
}

// wave50Layout is the full-resolution wave record: every spectral
// array, including the frequency axis, is transmitted as float32.
func wave50Layout() Layout {
	return sensorHeader(newLayout(SensorWave50, "v50")).
		field("significant_height", Float32, 1).
		field("peak_period", Float32, 1).
		field("peak_direction", Float32, 1).
		field("energy_density", Float32, SpectralBins).
		field("frequency", Float32, SpectralBins).
		field("a1", Float32, SpectralBins).
		field("b1", Float32, SpectralBins).
		field("a2", Float32, SpectralBins).
		field("b2", Float32, SpectralBins).
		field("check", Float32, SpectralBins).
		field("latitude", Float32, 1).
		field("longitude", Float32, 1).
		field("temperature", Float32, 1).
		field("voltage", Float32, 1).
		field("u_mean", Float32, 1).
		field("v_mean", Float32, 1).
		field("z_mean", Float32, 1).
		field("year", Int32, 1).
		field("month", Int32, 1).
		field("day", Int32, 1).
		field("hour", Int32, 1).
		field("minute", Int32, 1).
		field("second", Int32, 1).
		build()
}

// wave51Layout drops the directional moments and sends the frequency axis as
// a min/max/step triple instead of a full array.
func wave51Layout() Layout {
	return sensorHeader(newLayout(SensorWave51, "v51")).
		field("significant_height", Float32, 1).
		field("peak_period", Float32, 1).
		field("peak_direction", Float32, 1).
		field("energy_density", Float32, SpectralBins).
		field("fmin", Float32, 1).
		field("fmax", Float32, 1).
		field("fstep", Float32, 1).
		field("latitude", Float32, 1).
		field("longitude", Float32, 1).
		field("temperature", Float32, 1).
		field("voltage", Float32, 1).
		field("u_mean", Float32, 1).
		field("v_mean", Float32, 1).
		field("z_mean", Float32, 1).
		field("year", Int32, 1).
		field("month", Int32, 1).
		field("day", Int32, 1).
		field("hour", Int32, 1).
		field("minute", Int32, 1).
		field("second", Int32, 1).
		build()
}

// wave52Layout is the compact record: half-precision floats and fixed-point
// directional moments (int8 hundredths) with a uint8-tenths check factor.
// Firmware revised early 2025 appends four reserved bytes; both variants are
// registered and resolved by payload length.
func wave52Layout(post2025 bool) Layout {
	variant := "v52-pre2025"
	if post2025 {
		variant = "v52-post2025"
	}
	b := sensorHeader(newLayout(SensorWave52, variant)).
		field("significant_height", Float16, 1).
		field("peak_period", Float16, 1).
		field("peak_direction", Float16, 1).
		field("energy_density", Float16, SpectralBins).
		field("fmin", Float16, 1).
		field("fmax", Float16, 1).
		scaled("a1", Int8, SpectralBins, 0.01, 0).
		scaled("b1", Int8, SpectralBins, 0.01, 0).
		scaled("a2", Int8, SpectralBins, 0.01, 0).
		scaled("b2", Int8, SpectralBins, 0.01, 0).
		scaled("check", Uint8, SpectralBins, 0.1, 0).
		field("latitude", Float32, 1).
		field("longitude", Float32, 1).
		field("temperature", Float16, 1).
		field("salinity", Float16, 1).
		field("voltage", Float16, 1).
		field("epoch", Float32, 1)
	if post2025 {
		b = b.field("reserved", Uint32, 1)
	}
	return b.build()
}
