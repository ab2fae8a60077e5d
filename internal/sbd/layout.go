package sbd

// Encoding selects how raw bytes of a field are interpreted. All encodings
// are little-endian.
type Encoding uint8

const (
	Char Encoding = iota // single byte, kept as its numeric value
	Int8
	Uint8
	Int16
	Int32
	Uint32
	Float16 // IEEE 754 half precision
	Float32
)

// Width returns the byte width of one element of the encoding.
func (e Encoding) Width() int {
	switch e {
	case Char, Int8, Uint8:
		return 1
	case Int16, Float16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	}
	return 0
}

// FieldLayout places one named field inside a payload. Count > 1 describes a
// contiguous array of identical elements. Engineering units are obtained as
// value = raw*Scale + Bias; a zero Scale means the raw value is used as-is.
type FieldLayout struct {
	Name   string
	Offset int
	Count  int
	Enc    Encoding
	Scale  float64
	Bias   float64
}

// width returns the total byte width of the field.
func (f FieldLayout) width() int { return f.Count * f.Enc.Width() }

// scale returns the effective scale factor (1 when unset).
func (f FieldLayout) scale() float64 {
	if f.Scale == 0 {
		return 1
	}
	return f.Scale
}

// Layout is the complete ordered field set of one payload variant. Size is
// the exact payload length the variant occupies on the wire; a payload of a
// supported sensor type must match one registered Size exactly.
type Layout struct {
	Sensor  SensorType
	Variant string // e.g. "v52-pre2025"
	Size    int
	Fields  []FieldLayout
}

// Field looks up a field layout by name.
func (l Layout) Field(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}

// layoutBuilder assigns offsets sequentially, mirroring a packed C struct.
type layoutBuilder struct {
	sensor  SensorType
	variant string
	fields  []FieldLayout
	offset  int
}

func newLayout(sensor SensorType, variant string) *layoutBuilder {
	return &layoutBuilder{sensor: sensor, variant: variant}
}

func (b *layoutBuilder) field(name string, enc Encoding, count int) *layoutBuilder {
	return b.scaled(name, enc, count, 0, 0)
}

func (b *layoutBuilder) scaled(name string, enc Encoding, count int, scale, bias float64) *layoutBuilder {
	f := FieldLayout{Name: name, Offset: b.offset, Count: count, Enc: enc, Scale: scale, Bias: bias}
	b.fields = append(b.fields, f)
	b.offset += f.width()
	return b
}

func (b *layoutBuilder) build() Layout {
	return Layout{Sensor: b.sensor, Variant: b.variant, Size: b.offset, Fields: b.fields}
}
