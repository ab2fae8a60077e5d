// Package feed implements the caching telemetry server: it polls the SWIFT
// server for new SBD messages, stores them locally, serves compiled series
// over HTTP and broadcasts freshly decoded records to websocket clients.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/compile"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/export"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/model"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/store"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/telemetry"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Server polls, caches, serves and broadcasts buoy telemetry.
type Server struct {
	addr     string
	buoys    []string
	interval time.Duration
	lookback time.Duration

	client   *telemetry.Client
	store    *store.Store
	decoder  *sbd.Decoder
	compiler *compile.Compiler
	metrics  *Metrics

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	status  map[string]model.PullStatus

	server *http.Server
}

// New wires a feed server from its collaborators.
func New(cfg *model.Config, client *telemetry.Client, st *store.Store, dec *sbd.Decoder, metrics *Metrics) *Server {
	return &Server{
		addr:     cfg.Server.Addr,
		buoys:    cfg.Buoys,
		interval: time.Duration(cfg.Server.PollIntervalS) * time.Second,
		lookback: time.Duration(cfg.Pull.LookbackH) * time.Hour,
		client:   client,
		store:    st,
		decoder:  dec,
		compiler: compile.NewCompiler(dec, cfg.Pull.Workers),
		metrics:  metrics,
		clients:  make(map[*websocket.Conn]bool),
		status:   make(map[string]model.PullStatus),
	}
}

// Start launches the HTTP server for the series, status, websocket and
// metrics endpoints. It blocks until the server stops or fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/series", s.handleSeries)
	mux.HandleFunc("/api/errors", s.handleErrors)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())
	s.server = &http.Server{Addr: s.addr, Handler: mux}
	log.Printf("[feed] listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Printf("[feed] shutdown: %v", err)
	}
}

// Poll repeatedly pulls each configured buoy until ctx is cancelled. The
// first cycle runs immediately.
func (s *Server) Poll(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Server) pollOnce(ctx context.Context) {
	for _, id := range s.buoys {
		if ctx.Err() != nil {
			return
		}
		s.pullBuoy(ctx, id)
	}
}

// pullBuoy fetches the lookback window for one buoy, stores the messages
// that are new, and broadcasts their decoded records.
func (s *Server) pullBuoy(ctx context.Context, buoyID string) {
	now := time.Now().UTC()
	status := model.PullStatus{BuoyID: buoyID, PulledAt: now}

	msgs, err := s.client.PullMessages(ctx, buoyID, now.Add(-s.lookback), now)
	if err != nil {
		log.Printf("[feed] pull buoy %s: %v", buoyID, err)
		s.metrics.PullFailures.Inc()
		status.LastError = err.Error()
		s.setStatus(status)
		return
	}
	added, err := s.store.Put(msgs)
	if err != nil {
		log.Printf("[feed] store buoy %s: %v", buoyID, err)
		status.LastError = err.Error()
		s.setStatus(status)
		return
	}
	status.NewCount = len(added)
	s.metrics.MessagesPulled.Add(float64(len(added)))

	for _, m := range added {
		rec, errRec := s.decoder.Decode(m)
		if errRec != nil {
			s.metrics.DecodeErrors.Inc()
			status.ErrCount++
			continue
		}
		s.broadcast(feedRecord(buoyID, rec))
		s.metrics.RecordsFed.Inc()
	}
	s.setStatus(status)
	if len(added) > 0 {
		log.Printf("[feed] buoy %s: %d new messages, %d errors", buoyID, len(added), status.ErrCount)
	}
}

func (s *Server) setStatus(st model.PullStatus) {
	s.mu.Lock()
	s.status[st.BuoyID] = st
	s.mu.Unlock()
}

// feedRecord projects the scalar view of a record for the live feed.
func feedRecord(buoyID string, rec sbd.Record) model.FeedRecord {
	scalars := rec.Scalars()
	return model.FeedRecord{
		BuoyID:            buoyID,
		Datetime:          rec.Time(),
		SensorType:        int(rec.Sensor()),
		SignificantHeight: scalars["significant_height"],
		PeakPeriod:        scalars["peak_period"],
		PeakDirection:     scalars["peak_direction"],
		Latitude:          scalars["latitude"],
		Longitude:         scalars["longitude"],
		Voltage:           scalars["voltage"],
		ClockSubstituted:  rec.ClockSubstituted(),
	}
}

// handleSeries compiles the cached messages for ?buoy= over the optional
// ?start= / ?end= RFC 3339 bounds and returns the series as JSON.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	buoyID := r.URL.Query().Get("buoy")
	if buoyID == "" {
		http.Error(w, "missing buoy parameter", http.StatusBadRequest)
		return
	}
	start, end, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msgs, err := s.store.Messages(buoyID, start, end)
	if err != nil {
		http.Error(w, "load messages", http.StatusInternalServerError)
		return
	}
	container, err := s.compiler.Compile(r.Context(), buoyID, start, end, msgs)
	if err != nil {
		http.Error(w, "compile series", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := export.WriteJSON(w, container); err != nil {
		log.Printf("[feed] write series for %s: %v", buoyID, err)
	}
}

// handleErrors returns only the error records for ?buoy= over the optional
// range: the buoy-reported faults and decode failures without the series
// bulk.
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	buoyID := r.URL.Query().Get("buoy")
	if buoyID == "" {
		http.Error(w, "missing buoy parameter", http.StatusBadRequest)
		return
	}
	start, end, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msgs, err := s.store.Messages(buoyID, start, end)
	if err != nil {
		http.Error(w, "load messages", http.StatusInternalServerError)
		return
	}
	container, err := s.compiler.Compile(r.Context(), buoyID, start, end, msgs)
	if err != nil {
		http.Error(w, "compile series", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := export.WriteErrorsJSON(w, container); err != nil {
		log.Printf("[feed] write errors for %s: %v", buoyID, err)
	}
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Now().UTC()
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, errors.New("invalid start parameter")
		}
		start = t.UTC()
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, errors.New("invalid end parameter")
		}
		end = t.UTC()
	}
	return start, end, nil
}

// handleStatus reports the latest poll cycle per buoy.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	statuses := make([]model.PullStatus, 0, len(s.status))
	for _, st := range s.status {
		statuses = append(statuses, st)
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statuses); err != nil {
		log.Printf("[feed] write status: %v", err)
	}
}

// handleWS upgrades the connection and registers the client for broadcasts.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.metrics.WSClients.Inc()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			s.metrics.WSClients.Dec()
			if err := conn.Close(); err != nil {
				log.Printf("[feed] warning: close websocket: %v", err)
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast sends a record to every connected websocket client.
func (s *Server) broadcast(rec model.FeedRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Printf("[feed] marshal record: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("[feed] warning: broadcast: %v", err)
		}
	}
}
