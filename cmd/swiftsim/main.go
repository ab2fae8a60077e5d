// Swiftsim writes synthetic SBD payload files for offline testing of the
// decode and compile pipeline without touching the SWIFT server. Generated
// file names follow the server's "microSWIFT NNN" convention so the id
// extraction and compilation paths see realistic input.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
)

func main() {
	buoyID := flag.String("buoy", "019", "three-digit buoy id")
	sensor := flag.Int("sensor", 52, "sensor type to generate: 50, 51 or 52")
	count := flag.Int("n", 24, "number of payload files")
	startArg := flag.String("start", "", "timestamp of the first sample (RFC 3339); defaults to n hours ago")
	interval := flag.Duration("interval", time.Hour, "spacing between samples")
	outDir := flag.String("out", "sbd-sim", "output directory")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible runs")
	flag.Parse()

	reg, err := sbd.NewRegistry()
	if err != nil {
		log.Fatalf("layout registry: %v", err)
	}
	variants, err := reg.Layouts(sbd.SensorType(*sensor))
	if err != nil {
		log.Fatalf("sensor type %d: %v", *sensor, err)
	}
	layout := variants[0]

	start := time.Now().UTC().Add(-time.Duration(*count) * *interval)
	if *startArg != "" {
		if start, err = time.Parse(time.RFC3339, *startArg); err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create %s: %v", *outDir, err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *count; i++ {
		when := start.Add(time.Duration(i) * *interval)
		payload, err := sbd.Encode(layout, sampleValues(layout, rng, when))
		if err != nil {
			log.Fatalf("encode sample %d: %v", i, err)
		}
		name := fmt.Sprintf("microSWIFT %s_%s.sbd", *buoyID, when.Format("02Jan2006_150405"))
		if err := os.WriteFile(filepath.Join(*outDir, name), payload, 0o644); err != nil {
			log.Fatalf("write %s: %v", name, err)
		}
	}
	log.Printf("wrote %d sensor type %d payloads to %s", *count, *sensor, *outDir)
}

// sampleValues synthesizes plausible open-ocean values for every field the
// layout carries. Fields the layout lacks are simply never consulted.
func sampleValues(layout sbd.Layout, rng *rand.Rand, when time.Time) map[string][]float64 {
	vals := map[string][]float64{
		"significant_height": {0.5 + 2.5*rng.Float64()},
		"peak_period":        {4 + 10*rng.Float64()},
		"peak_direction":     {360 * rng.Float64()},
		"latitude":           {47 + rng.Float64()},
		"longitude":          {-125 + rng.Float64()},
		"temperature":        {8 + 6*rng.Float64()},
		"salinity":           {31 + 3*rng.Float64()},
		"voltage":            {3.5 + 0.7*rng.Float64()},
		"u_mean":             {rng.NormFloat64() * 0.3},
		"v_mean":             {rng.NormFloat64() * 0.3},
		"z_mean":             {rng.NormFloat64() * 0.5},
		"fmin":               {0.05},
		"fmax":               {0.5},
		"fstep":              {(0.5 - 0.05) / float64(sbd.SpectralBins-1)},
		"epoch":              {float64(when.Unix())},
		"year":               {float64(when.Year())},
		"month":              {float64(when.Month())},
		"day":                {float64(when.Day())},
		"hour":               {float64(when.Hour())},
		"minute":             {float64(when.Minute())},
		"second":             {float64(when.Second())},
	}
	spectrum := make([]float64, sbd.SpectralBins)
	freqs := make([]float64, sbd.SpectralBins)
	for i := range spectrum {
		f := 0.05 + (0.5-0.05)*float64(i)/float64(sbd.SpectralBins-1)
		freqs[i] = f
		// crude single-peak spectrum around 0.1 Hz
		spectrum[i] = math.Exp(-math.Pow((f-0.1)/0.05, 2)) * (0.5 + rng.Float64())
	}
	vals["energy_density"] = spectrum
	vals["frequency"] = freqs
	for _, name := range []string{"a1", "b1", "a2", "b2"} {
		moments := make([]float64, sbd.SpectralBins)
		for i := range moments {
			moments[i] = math.Round(rng.Float64()*100) / 100 // hundredths, the int8 quantization step
		}
		vals[name] = moments
	}
	check := make([]float64, sbd.SpectralBins)
	for i := range check {
		check[i] = math.Round(rng.Float64()*10*10) / 10
	}
	vals["check"] = check
	return vals
}
