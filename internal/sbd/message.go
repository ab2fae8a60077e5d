// Package sbd decodes microSWIFT short burst data (SBD) payloads.
//
// SBD binary wire format (buoy -> Iridium -> SWIFT server):
//
//	byte 0      ASCII payload type, '7' for binary sensor payloads
//	byte 1      sensor type id (50, 51 or 52)
//	byte 2      com port
//	bytes 3-4   payload size, little-endian int16
//	bytes 5-    sensor fields per the layout registered for the sensor type
//
// Payloads whose first byte is not '7' carry a buoy-reported error or status
// message as free ASCII text. All multi-byte fields are little-endian.
package sbd

import (
	"regexp"
	"time"
)

// PayloadTypeSensor is the ASCII tag marking a binary sensor payload.
const PayloadTypeSensor byte = '7'

// SensorType identifies which binary layout applies to a payload.
type SensorType byte

// Sensor types transmitted by deployed microSWIFT firmware.
const (
	SensorWave50 SensorType = 50
	SensorWave51 SensorType = 51
	SensorWave52 SensorType = 52
)

// SupportedSensorTypes lists every sensor type the registry must carry a
// layout for. A missing layout for any of these is a configuration defect.
var SupportedSensorTypes = []SensorType{SensorWave50, SensorWave51, SensorWave52}

// RawMessage is one retrieved SBD payload plus its provenance. It is
// immutable once retrieved; the compiler owns it for the duration of a
// single compilation run.
type RawMessage struct {
	Name     string    // source file name within the archive
	BuoyID   string    // three-digit microSWIFT id, e.g. "019"
	Captured time.Time // transmission capture time reported by the server
	Payload  []byte
}

var idPattern = regexp.MustCompile(`microSWIFT (\d{3})`)

// IDFromName extracts the three-digit buoy id from an SBD file name such as
// "buoy-microSWIFT 019-14Jun2022-002355.sbd". Returns "" when absent.
func IDFromName(name string) string {
	m := idPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}
