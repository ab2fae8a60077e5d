package sbd

import (
	"errors"
	"fmt"
	"time"
)

// Failure taxonomy. Individual failures are recorded per message and never
// abort a compilation; only a misconfigured registry is fatal.
var (
	ErrUnknownSensorType = errors.New("unknown sensor type")
	ErrTruncatedPayload  = errors.New("truncated payload")
	ErrFieldOutOfRange   = errors.New("field out of range")
	ErrBuoyReported      = errors.New("buoy-reported error")
)

// ErrorRecord describes one payload that did not produce sensor data: either
// a decode failure or a fault the buoy reported about itself. A given payload
// yields exactly one of Record or ErrorRecord, never both.
type ErrorRecord struct {
	Time   time.Time // capture time of the offending payload, if known
	Kind   error     // one of the sentinel errors above
	Detail string    // human-readable description or the buoy's own text
	Name   string    // provenance: source file name
	BuoyID string
}

// Error implements the error interface.
func (e ErrorRecord) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Kind, e.Detail)
}

// Unwrap exposes the sentinel for errors.Is.
func (e ErrorRecord) Unwrap() error { return e.Kind }
