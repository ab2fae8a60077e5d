package sbd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/x448/float16"
)

// frequencySentinel marks a missing frequency axis on sensor types 51/52.
const frequencySentinel = 999

// clockFloor is the earliest plausible onboard clock value. Anything before
// it means the buoy's clock was unset when the sample was written.
var clockFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// clockCeiling bounds onboard clocks when no capture time is available.
var clockCeiling = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

// clockSlack is how far past the capture time an onboard clock may run
// before it is considered implausible.
const clockSlack = 24 * time.Hour

// Decoder turns raw payload bytes into typed records using an injected
// layout registry. Decoding is a pure function of the payload and registry:
// no I/O, no shared mutable state, safe for concurrent use.
type Decoder struct {
	reg *Registry
}

// NewDecoder returns a decoder bound to reg.
func NewDecoder(reg *Registry) *Decoder {
	return &Decoder{reg: reg}
}

// Decode resolves the payload's layout and reads every field. Exactly one of
// the returned values is non-nil: a Record for valid sensor payloads, an
// ErrorRecord for everything else (buoy-reported error text, unknown sensor
// type, truncated payload, unrecoverable clock). Decode never panics on
// malformed input.
func (d *Decoder) Decode(msg RawMessage) (Record, *ErrorRecord) {
	payload := msg.Payload
	trimmed := bytes.TrimRight(payload, "\x00")
	if len(trimmed) == 0 {
		return nil, errRecord(msg, ErrTruncatedPayload, "empty payload")
	}
	if payload[0] != PayloadTypeSensor {
		// Buoy-reported error or status message carried as ASCII text.
		// Handling it is a success; the content is the error.
		return nil, errRecord(msg, ErrBuoyReported, printable(trimmed))
	}
	if len(payload) < 2 {
		return nil, errRecord(msg, ErrTruncatedPayload, "payload ends before sensor type byte")
	}

	st := SensorType(payload[1])
	variants, err := d.reg.Layouts(st)
	if err != nil {
		return nil, errRecord(msg, ErrUnknownSensorType, fmt.Sprintf("sensor type %d", st))
	}
	// Transport frames may arrive NUL-padded past the record. Match the raw
	// length first so records that legitimately end in zero bytes survive,
	// then retry against the padding-stripped length.
	layout, ok := d.reg.Resolve(st, len(payload))
	if !ok {
		payload = trimmed
		layout, ok = d.reg.Resolve(st, len(payload))
	}
	if !ok {
		return nil, errRecord(msg, ErrTruncatedPayload,
			fmt.Sprintf("expected %s bytes, but received %d bytes", expectedSizes(variants), len(payload)))
	}

	vals := readFields(layout, payload)
	meta := recordMeta{
		ComPort:     int(vals.scalar("com_port")),
		PayloadSize: int(vals.scalar("payload_size")),
	}

	var onboard time.Time
	switch st {
	case SensorWave50, SensorWave51:
		onboard = clockFromParts(vals)
	case SensorWave52:
		onboard = clockFromEpoch(vals.scalar("epoch"), msg.Captured)
	}
	meta.when, meta.clockSubst, err = resolveClock(onboard, msg.Captured)
	if err != nil {
		return nil, errRecord(msg, ErrFieldOutOfRange, err.Error())
	}

	switch st {
	case SensorWave50:
		return newWave50(meta, vals), nil
	case SensorWave51:
		return newWave51(meta, vals), nil
	default:
		return newWave52(meta, vals), nil
	}
}

func newWave50(meta recordMeta, vals fieldValues) *Wave50 {
	return &Wave50{
		recordMeta:        meta,
		SignificantHeight: vals.scalar("significant_height"),
		PeakPeriod:        vals.scalar("peak_period"),
		PeakDirection:     vals.scalar("peak_direction"),
		EnergyDensity:     vals.vector("energy_density"),
		Frequency:         vals.vector("frequency"),
		A1:                vals.vector("a1"),
		B1:                vals.vector("b1"),
		A2:                vals.vector("a2"),
		B2:                vals.vector("b2"),
		Check:             vals.vector("check"),
		Latitude:          vals.scalar("latitude"),
		Longitude:         vals.scalar("longitude"),
		Temperature:       vals.scalar("temperature"),
		Voltage:           vals.scalar("voltage"),
		UMean:             vals.scalar("u_mean"),
		VMean:             vals.scalar("v_mean"),
		ZMean:             vals.scalar("z_mean"),
	}
}

func newWave51(meta recordMeta, vals fieldValues) *Wave51 {
	return &Wave51{
		recordMeta:        meta,
		SignificantHeight: vals.scalar("significant_height"),
		PeakPeriod:        vals.scalar("peak_period"),
		PeakDirection:     vals.scalar("peak_direction"),
		EnergyDensity:     vals.vector("energy_density"),
		Frequency:         frequencyRange(vals.scalar("fmin"), vals.scalar("fmax"), vals.scalar("fstep")),
		Latitude:          vals.scalar("latitude"),
		Longitude:         vals.scalar("longitude"),
		Temperature:       vals.scalar("temperature"),
		Voltage:           vals.scalar("voltage"),
		UMean:             vals.scalar("u_mean"),
		VMean:             vals.scalar("v_mean"),
		ZMean:             vals.scalar("z_mean"),
	}
}

func newWave52(meta recordMeta, vals fieldValues) *Wave52 {
	return &Wave52{
		recordMeta:        meta,
		SignificantHeight: vals.scalar("significant_height"),
		PeakPeriod:        vals.scalar("peak_period"),
		PeakDirection:     vals.scalar("peak_direction"),
		EnergyDensity:     vals.vector("energy_density"),
		Frequency:         frequencySpan(vals.scalar("fmin"), vals.scalar("fmax"), SpectralBins),
		A1:                vals.vector("a1"),
		B1:                vals.vector("b1"),
		A2:                vals.vector("a2"),
		B2:                vals.vector("b2"),
		Check:             vals.vector("check"),
		Latitude:          vals.scalar("latitude"),
		Longitude:         vals.scalar("longitude"),
		Temperature:       vals.scalar("temperature"),
		Salinity:          vals.scalar("salinity"),
		Voltage:           vals.scalar("voltage"),
	}
}

// fieldValues holds decoded engineering-unit values keyed by field name.
// Scalars are single-element slices.
type fieldValues map[string][]float64

func (v fieldValues) scalar(name string) float64 {
	if vals := v[name]; len(vals) > 0 {
		return vals[0]
	}
	return math.NaN()
}

func (v fieldValues) vector(name string) []float64 { return v[name] }

// readFields walks the layout and converts every field. The caller has
// already validated the payload length against the layout size.
func readFields(l Layout, payload []byte) fieldValues {
	vals := make(fieldValues, len(l.Fields))
	for _, f := range l.Fields {
		out := make([]float64, f.Count)
		width := f.Enc.Width()
		for i := range out {
			raw := readElement(f.Enc, payload[f.Offset+i*width:])
			out[i] = raw*f.scale() + f.Bias
		}
		vals[f.Name] = out
	}
	return vals
}

// readElement reads one little-endian element of the encoding from b.
func readElement(enc Encoding, b []byte) float64 {
	switch enc {
	case Char, Uint8:
		return float64(b[0])
	case Int8:
		return float64(int8(b[0]))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Float16:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return math.NaN()
}

// frequencyRange reconstructs the type 51 axis: fmin, fmin+fstep, ... fmax.
// The 999 sentinel (or a degenerate step) marks a missing axis and yields
// all-sentinel bins.
func frequencyRange(fmin, fmax, fstep float64) []float64 {
	if fmin == frequencySentinel || fmax == frequencySentinel || fstep <= 0 {
		return sentinelBins()
	}
	var freqs []float64
	for f := fmin; f <= fmax+fstep/2; f += fstep {
		freqs = append(freqs, f)
	}
	return freqs
}

// frequencySpan reconstructs the type 52 axis: n evenly spaced bins from
// fmin to fmax inclusive.
func frequencySpan(fmin, fmax float64, n int) []float64 {
	if fmin == frequencySentinel || fmax == frequencySentinel {
		return sentinelBins()
	}
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = fmin + (fmax-fmin)*float64(i)/float64(n-1)
	}
	return freqs
}

func sentinelBins() []float64 {
	freqs := make([]float64, SpectralBins)
	for i := range freqs {
		freqs[i] = frequencySentinel
	}
	return freqs
}

// clockFromParts assembles the type 50/51 onboard clock from its six int32
// fields. Returns the zero time when any part is out of range.
func clockFromParts(vals fieldValues) time.Time {
	year := int(vals.scalar("year"))
	month := int(vals.scalar("month"))
	day := int(vals.scalar("day"))
	hour := int(vals.scalar("hour"))
	minute := int(vals.scalar("minute"))
	second := int(vals.scalar("second"))
	if year < 2000 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 ||
		hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 60 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

// clockFromEpoch converts the type 52 float32 epoch. Returns the zero time
// when the epoch is implausible.
func clockFromEpoch(epoch float64, captured time.Time) time.Time {
	if math.IsNaN(epoch) || math.IsInf(epoch, 0) {
		return time.Time{}
	}
	t := time.Unix(int64(epoch), 0).UTC()
	if t.Before(clockFloor) {
		return time.Time{}
	}
	ceiling := clockCeiling
	if !captured.IsZero() {
		ceiling = captured.Add(clockSlack)
	}
	if t.After(ceiling) {
		return time.Time{}
	}
	return t
}

// resolveClock picks the record timestamp. An implausible onboard clock
// falls back to the capture time; that substitution is a warning carried on
// the record, not an error. With neither clock available the record cannot
// be placed in time and is unrecoverable.
func resolveClock(onboard, captured time.Time) (time.Time, bool, error) {
	if !onboard.IsZero() {
		return onboard, false, nil
	}
	if !captured.IsZero() {
		return captured, true, nil
	}
	return time.Time{}, false, fmt.Errorf("onboard clock implausible and no capture time available")
}

func errRecord(msg RawMessage, kind error, detail string) *ErrorRecord {
	return &ErrorRecord{
		Time:   msg.Captured,
		Kind:   kind,
		Detail: detail,
		Name:   msg.Name,
		BuoyID: msg.BuoyID,
	}
}

func expectedSizes(variants []Layout) string {
	sizes := make([]string, len(variants))
	for i, l := range variants {
		sizes[i] = strconv.Itoa(l.Size)
	}
	return strings.Join(sizes, " or ")
}

// printable renders buoy error text, replacing non-printable bytes so the
// detail is safe to log and serialize.
func printable(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c >= 0x20 && c < 0x7f || c == '\n' || c == '\t' {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
