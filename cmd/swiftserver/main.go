// Swiftserver runs the caching telemetry feed:
// - polls the SWIFT server for each configured buoy on an interval
// - caches raw SBD messages in a local bbolt database
// - serves compiled series over HTTP (/api/series, /api/status)
// - broadcasts freshly decoded records to websocket clients (/ws)
// - exposes prometheus metrics (/metrics)
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/feed"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/model"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/store"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", "configs/server.yml", "path to YAML configuration")
	flag.Parse()

	cfg, err := model.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	reg, err := sbd.NewRegistry()
	if err != nil {
		// A registry defect means the engine itself is misconfigured;
		// nothing useful can run.
		log.Fatalf("layout registry: %v", err)
	}

	st, err := store.Open(cfg.Server.StorePath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Printf("warning: close store: %v", cerr)
		}
	}()

	srv := feed.New(cfg, telemetry.NewClient(cfg.Pull.BaseURL), st, sbd.NewDecoder(reg), feed.NewMetrics(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Poll(ctx)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("feed server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	log.Println("swiftserver shutting down...")
	cancel()
	srv.Stop()
}
