package export

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/compile"
)

const trackTimeFormat = "2006-01-02T15Z"

// TrackFileName names a drift-track file deterministically from the buoy id
// and the UTC query bounds.
func TrackFileName(buoyID string, start, end time.Time) string {
	return fmt.Sprintf("microSWIFT%s_%s_to_%s.kml",
		buoyID, start.UTC().Format(trackTimeFormat), end.UTC().Format(trackTimeFormat))
}

// WriteKML renders the buoy's drift track: the chronological sequence of
// GPS positions and nothing else. Records without a valid position are
// skipped.
func WriteKML(w io.Writer, c *compile.Container) error {
	lats, _ := c.Scalar("latitude")
	lons, _ := c.Scalar("longitude")

	var coords strings.Builder
	for i := range c.Times() {
		if !validPosition(lats[i], lons[i]) {
			continue
		}
		fmt.Fprintf(&coords, "          %.6f,%.6f,0\n", lons[i], lats[i])
	}

	_, err := fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <name>microSWIFT %s drift track</name>
    <Placemark>
      <name>microSWIFT %s</name>
      <LineString>
        <tessellate>1</tessellate>
        <coordinates>
%s        </coordinates>
      </LineString>
    </Placemark>
  </Document>
</kml>
`, c.BuoyID(), c.BuoyID(), coords.String())
	return err
}

func validPosition(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
