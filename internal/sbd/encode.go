package sbd

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Encode builds a synthetic payload for a layout from engineering-unit
// values, inverting each field's scale/offset with truncation toward zero.
// Fields absent from vals are zero-filled; the payload type tag, sensor type
// and payload size header fields are filled from the layout when not given.
// A provided array whose length differs from the field's count is an error.
//
// Encode is the tooling counterpart of Decode: the buoy simulator and the
// round-trip tests use it, production decoding never does.
func Encode(l Layout, vals map[string][]float64) ([]byte, error) {
	payload := make([]byte, l.Size)
	for _, f := range l.Fields {
		elems, ok := vals[f.Name]
		if !ok {
			elems = headerDefault(l, f)
		}
		if elems != nil && len(elems) != f.Count {
			return nil, fmt.Errorf("field %s: got %d values, layout wants %d", f.Name, len(elems), f.Count)
		}
		width := f.Enc.Width()
		for i := 0; i < f.Count; i++ {
			var v float64
			if elems != nil {
				v = elems[i]
			}
			q := (v - f.Bias) / f.scale()
			// absorb division noise so exact multiples of the scale
			// stay exact under truncation
			raw := math.Trunc(q + q*4e-15)
			writeElement(f.Enc, payload[f.Offset+i*width:], raw, v)
		}
	}
	return payload, nil
}

// headerDefault supplies the standard header values so callers only need to
// pass sensor fields.
func headerDefault(l Layout, f FieldLayout) []float64 {
	switch f.Name {
	case "payload_type":
		return []float64{float64(PayloadTypeSensor)}
	case "sensor_type":
		return []float64{float64(l.Sensor)}
	case "payload_size":
		return []float64{float64(l.Size)}
	}
	return nil
}

// writeElement writes one little-endian element. Integer encodings take the
// truncated raw value; float encodings keep the engineering value directly
// since their scale is identity.
func writeElement(enc Encoding, b []byte, raw, value float64) {
	switch enc {
	case Char, Uint8:
		b[0] = byte(uint8(raw))
	case Int8:
		b[0] = byte(int8(raw))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(raw)))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(raw)))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(raw))
	case Float16:
		binary.LittleEndian.PutUint16(b, float16.Fromfloat32(float32(value)).Bits())
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(value)))
	}
}
