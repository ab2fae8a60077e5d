package sbd

import "time"

// Record is one successfully decoded sensor payload. The concrete type is
// one of Wave50, Wave51 or Wave52, selected by the sensor type byte. Records
// are immutable once produced by the decoder.
type Record interface {
	// Sensor reports which layout family produced the record.
	Sensor() SensorType
	// Time is the sample timestamp: the onboard clock when plausible,
	// otherwise the transmission capture time.
	Time() time.Time
	// ClockSubstituted reports whether the onboard clock was implausible
	// and the capture time was used instead.
	ClockSubstituted() bool
	// Scalars returns the record's scalar variables by catalog name.
	Scalars() map[string]float64
	// Vectors returns the record's spectral arrays by catalog name.
	Vectors() map[string][]float64
}

// recordMeta carries the fields shared by every record type.
type recordMeta struct {
	ComPort     int
	PayloadSize int
	when        time.Time
	clockSubst  bool
}

func (m recordMeta) Time() time.Time        { return m.when }
func (m recordMeta) ClockSubstituted() bool { return m.clockSubst }

// Wave50 is the first-generation full-resolution wave record (float32
// throughout, frequency axis transmitted explicitly).
type Wave50 struct {
	recordMeta
	SignificantHeight float64
	PeakPeriod        float64
	PeakDirection     float64
	EnergyDensity     []float64
	Frequency         []float64
	A1, B1, A2, B2    []float64
	Check             []float64
	Latitude          float64
	Longitude         float64
	Temperature       float64
	Voltage           float64
	UMean             float64
	VMean             float64
	ZMean             float64
}

func (w *Wave50) Sensor() SensorType { return SensorWave50 }

func (w *Wave50) Scalars() map[string]float64 {
	return map[string]float64{
		"sensor_type":        float64(SensorWave50),
		"com_port":           float64(w.ComPort),
		"payload_size":       float64(w.PayloadSize),
		"significant_height": w.SignificantHeight,
		"peak_period":        w.PeakPeriod,
		"peak_direction":     w.PeakDirection,
		"latitude":           w.Latitude,
		"longitude":          w.Longitude,
		"temperature":        w.Temperature,
		"voltage":            w.Voltage,
		"u_mean":             w.UMean,
		"v_mean":             w.VMean,
		"z_mean":             w.ZMean,
	}
}

func (w *Wave50) Vectors() map[string][]float64 {
	return map[string][]float64{
		"energy_density": w.EnergyDensity,
		"frequency":      w.Frequency,
		"a1":             w.A1,
		"b1":             w.B1,
		"a2":             w.A2,
		"b2":             w.B2,
		"check":          w.Check,
	}
}

// Wave51 matches Wave50's scalar set but reconstructs the frequency axis
// from a transmitted min/max/step triple and omits directional moments.
type Wave51 struct {
	recordMeta
	SignificantHeight float64
	PeakPeriod        float64
	PeakDirection     float64
	EnergyDensity     []float64
	Frequency         []float64
	Latitude          float64
	Longitude         float64
	Temperature       float64
	Voltage           float64
	UMean             float64
	VMean             float64
	ZMean             float64
}

func (w *Wave51) Sensor() SensorType { return SensorWave51 }

func (w *Wave51) Scalars() map[string]float64 {
	return map[string]float64{
		"sensor_type":        float64(SensorWave51),
		"com_port":           float64(w.ComPort),
		"payload_size":       float64(w.PayloadSize),
		"significant_height": w.SignificantHeight,
		"peak_period":        w.PeakPeriod,
		"peak_direction":     w.PeakDirection,
		"latitude":           w.Latitude,
		"longitude":          w.Longitude,
		"temperature":        w.Temperature,
		"voltage":            w.Voltage,
		"u_mean":             w.UMean,
		"v_mean":             w.VMean,
		"z_mean":             w.ZMean,
	}
}

func (w *Wave51) Vectors() map[string][]float64 {
	return map[string][]float64{
		"energy_density": w.EnergyDensity,
		"frequency":      w.Frequency,
	}
}

// Wave52 is the compact record: half-precision floats, fixed-point
// directional moments, onboard clock as a float32 epoch, plus salinity.
type Wave52 struct {
	recordMeta
	SignificantHeight float64
	PeakPeriod        float64
	PeakDirection     float64
	EnergyDensity     []float64
	Frequency         []float64
	A1, B1, A2, B2    []float64
	Check             []float64
	Latitude          float64
	Longitude         float64
	Temperature       float64
	Salinity          float64
	Voltage           float64
}

func (w *Wave52) Sensor() SensorType { return SensorWave52 }

func (w *Wave52) Scalars() map[string]float64 {
	return map[string]float64{
		"sensor_type":        float64(SensorWave52),
		"com_port":           float64(w.ComPort),
		"payload_size":       float64(w.PayloadSize),
		"significant_height": w.SignificantHeight,
		"peak_period":        w.PeakPeriod,
		"peak_direction":     w.PeakDirection,
		"latitude":           w.Latitude,
		"longitude":          w.Longitude,
		"temperature":        w.Temperature,
		"salinity":           w.Salinity,
		"voltage":            w.Voltage,
	}
}

func (w *Wave52) Vectors() map[string][]float64 {
	return map[string][]float64{
		"energy_density": w.EnergyDensity,
		"frequency":      w.Frequency,
		"a1":             w.A1,
		"b1":             w.B1,
		"a2":             w.A2,
		"b2":             w.B2,
		"check":          w.Check,
	}
}
