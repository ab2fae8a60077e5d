package telemetry

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
)

// ExtractMessages unpacks a virtual zip archive of .sbd files into raw
// messages. The buoy id comes from the "microSWIFT NNN" pattern in each
// entry name and the capture time from the entry's modification time, both
// set by the SWIFT server when it builds the archive.
func ExtractMessages(archive []byte) ([]sbd.RawMessage, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	var msgs []sbd.RawMessage
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		payload, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		msgs = append(msgs, sbd.RawMessage{
			Name:     f.Name,
			BuoyID:   sbd.IDFromName(f.Name),
			Captured: f.Modified.UTC(),
			Payload:  payload,
		})
	}
	return msgs, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			log.Printf("[telemetry] warning: close archive entry: %v", cerr)
		}
	}()
	return io.ReadAll(rc)
}
