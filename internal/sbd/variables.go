package sbd

// VarKind distinguishes per-record scalar variables from spectral arrays.
type VarKind uint8

const (
	ScalarVar VarKind = iota
	VectorVar
)

// VariableDef describes one output variable of the compiled time series.
type VariableDef struct {
	Name        string
	Description string
	Units       string
	Kind        VarKind
}

// Variables is the catalog of every variable any sensor type can produce.
// A compiled series always carries all of these keys, with gaps filled where
// a sensor type does not transmit the variable.
var Variables = []VariableDef{
	{"significant_height", "significant wave height", "m", ScalarVar},
	{"peak_period", "peak wave period", "s", ScalarVar},
	{"peak_direction", "peak wave direction", "deg", ScalarVar},
	{"energy_density", "wave energy density spectrum", "m^2/Hz", VectorVar},
	{"frequency", "spectral frequency bins", "Hz", VectorVar},
	{"a1", "first directional moment, positive E", "-", VectorVar},
	{"b1", "second directional moment, positive N", "-", VectorVar},
	{"a2", "third directional moment, positive E-W", "-", VectorVar},
	{"b2", "fourth directional moment, positive NE-SW", "-", VectorVar},
	{"check", "check factor", "-", VectorVar},
	{"u_mean", "mean GPS E-W velocity, positive E", "m/s", ScalarVar},
	{"v_mean", "mean GPS N-S velocity, positive N", "m/s", ScalarVar},
	{"z_mean", "mean GPS altitude, positive up", "m", ScalarVar},
	{"latitude", "mean GPS latitude", "decimal degrees", ScalarVar},
	{"longitude", "mean GPS longitude", "decimal degrees", ScalarVar},
	{"temperature", "mean temperature", "C", ScalarVar},
	{"salinity", "mean salinity", "PSU", ScalarVar},
	{"voltage", "mean battery voltage", "V", ScalarVar},
	{"sensor_type", "Iridium sensor type definition", "-", ScalarVar},
	{"com_port", "Iridium com port or # of replaced values", "-", ScalarVar},
	{"payload_size", "Iridium message size", "bytes", ScalarVar},
}

// ScalarVariables returns the catalog names of scalar kind, in order.
func ScalarVariables() []string { return namesOfKind(ScalarVar) }

// VectorVariables returns the catalog names of vector kind, in order.
func VectorVariables() []string { return namesOfKind(VectorVar) }

func namesOfKind(kind VarKind) []string {
	var names []string
	for _, v := range Variables {
		if v.Kind == kind {
			names = append(names, v.Name)
		}
	}
	return names
}
