// Swiftpull queries the SWIFT server for microSWIFT telemetry over a date
// range and renders it locally:
// - csv/json  : pull SBD messages, decode + compile, write a series table
// - track     : pull SBD messages, decode + compile, write a KML drift track
// - kml/zip   : download the server-rendered KML or raw SBD archive as-is
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/compile"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/export"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/telemetry"
)

func main() {
	buoys := flag.String("buoy", "", "comma-separated three-digit buoy ids, e.g. 019,043")
	startArg := flag.String("start", "", "query start in UTC (2006-01-02 or RFC 3339)")
	endArg := flag.String("end", "", "query end in UTC; defaults to now")
	format := flag.String("format", "csv", "output format: csv, json, track, kml or zip")
	outDir := flag.String("out", "", "directory for output files; stdout for csv/json when empty")
	server := flag.String("server", "", "SWIFT server base URL (default UW-APL)")
	workers := flag.Int("workers", 0, "decode concurrency; <1 selects one per CPU")
	flag.Parse()

	ids := splitIDs(*buoys)
	if len(ids) == 0 {
		log.Fatal("at least one -buoy id is required")
	}
	start, err := parseTime(*startArg)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	var end time.Time
	if *endArg != "" {
		if end, err = parseTime(*endArg); err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
	} else {
		end = time.Now().UTC()
	}

	reg, err := sbd.NewRegistry()
	if err != nil {
		log.Fatalf("layout registry: %v", err)
	}
	client := telemetry.NewClient(*server)
	compiler := compile.NewCompiler(sbd.NewDecoder(reg), *workers)
	ctx := context.Background()

	for _, id := range ids {
		if err := pullOne(ctx, client, compiler, id, start, end, *format, *outDir); err != nil {
			log.Fatalf("buoy %s: %v", id, err)
		}
	}
}

func pullOne(ctx context.Context, client *telemetry.Client, compiler *compile.Compiler, buoyID string, start, end time.Time, format, outDir string) error {
	switch format {
	case "zip":
		path, err := client.PullZip(ctx, buoyID, start, end, outDir)
		if err != nil {
			return err
		}
		log.Printf("saved %s", path)
		return nil
	case "kml":
		path, err := client.PullKML(ctx, buoyID, start, end, outDir)
		if err != nil {
			return err
		}
		log.Printf("saved %s", path)
		return nil
	case "csv", "json", "track":
		// fall through to compile below
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	msgs, err := client.PullMessages(ctx, buoyID, start, end)
	if err != nil {
		return err
	}
	container, err := compiler.Compile(ctx, buoyID, start, end, msgs)
	if err != nil {
		return err
	}
	log.Printf("buoy %s: %d records, %d errors", buoyID, container.Len(), container.ErrorCount())

	switch format {
	case "track":
		name := export.TrackFileName(buoyID, start, end)
		return writeFile(outDir, name, func(w io.Writer) error { return export.WriteKML(w, container) })
	case "json":
		if outDir == "" {
			return export.WriteJSON(os.Stdout, container)
		}
		name := strings.TrimSuffix(export.TrackFileName(buoyID, start, end), ".kml") + ".json"
		return writeFile(outDir, name, func(w io.Writer) error { return export.WriteJSON(w, container) })
	default:
		if outDir == "" {
			return export.WriteCSV(os.Stdout, container)
		}
		name := strings.TrimSuffix(export.TrackFileName(buoyID, start, end), ".kml") + ".csv"
		return writeFile(outDir, name, func(w io.Writer) error { return export.WriteCSV(w, container) })
	}
}

func writeFile(dir, name string, render func(io.Writer) error) error {
	full := filepath.Join(dir, name)
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("saved %s", full)
	return nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
