package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/model"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/store"
	"github.com/SASlabgroup/microSWIFTtelemetry/internal/telemetry"
)

var testSample = time.Date(2022, 9, 27, 0, 0, 0, 0, time.UTC)

func spectrum(v float64) []float64 {
	out := make([]float64, sbd.SpectralBins)
	for i := range out {
		out[i] = v
	}
	return out
}

func wavePayload(t *testing.T, reg *sbd.Registry, sig float64, epoch int64) []byte {
	t.Helper()
	layout, ok := reg.Resolve(sbd.SensorWave52, 327)
	require.True(t, ok)
	payload, err := sbd.Encode(layout, map[string][]float64{
		"significant_height": {sig}, "peak_period": {9}, "peak_direction": {200},
		"energy_density": spectrum(0.3), "fmin": {0.05}, "fmax": {0.5},
		"a1": spectrum(0.1), "b1": spectrum(0.1), "a2": spectrum(0.1), "b2": spectrum(0.1),
		"check":    spectrum(1),
		"latitude": {47.5}, "longitude": {-122.25},
		"temperature": {11}, "salinity": {30}, "voltage": {4},
		"epoch": {float64(epoch)},
	})
	require.NoError(t, err)
	return payload
}

func newTestServer(t *testing.T) (*Server, *sbd.Registry, *store.Store) {
	t.Helper()
	reg, err := sbd.NewRegistry()
	require.NoError(t, err)
	st, err := store.Open(filepath.Join(t.TempDir(), "messages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })

	cfg := &model.Config{
		Server: model.ServerConfig{Addr: ":0", PollIntervalS: 300},
		Pull:   model.PullConfig{Workers: 2, LookbackH: 48},
		Buoys:  []string{"019"},
	}
	srv := New(cfg, telemetry.NewClient(""), st, sbd.NewDecoder(reg), NewMetrics(prometheus.NewRegistry()))
	return srv, reg, st
}

func TestFeedRecordProjection(t *testing.T) {
	_, reg, _ := newTestServer(t)
	dec := sbd.NewDecoder(reg)

	rec, errRec := dec.Decode(sbd.RawMessage{
		BuoyID:   "019",
		Captured: testSample.Add(time.Minute),
		Payload:  wavePayload(t, reg, 1.2, testSample.Unix()),
	})
	require.Nil(t, errRec)

	fr := feedRecord("019", rec)
	require.Equal(t, "019", fr.BuoyID)
	require.Equal(t, testSample, fr.Datetime)
	require.Equal(t, 52, fr.SensorType)
	require.InDelta(t, 1.2, fr.SignificantHeight, 1e-3)
	require.InDelta(t, 47.5, fr.Latitude, 1e-5)
	require.False(t, fr.ClockSubstituted)
}

func TestHandleSeries(t *testing.T) {
	srv, reg, st := newTestServer(t)

	_, err := st.Put([]sbd.RawMessage{
		{
			Name:     "a.sbd",
			BuoyID:   "019",
			Captured: testSample.Add(time.Minute),
			Payload:  wavePayload(t, reg, 1.2, testSample.Unix()),
		},
		{
			Name:     "b.sbd",
			BuoyID:   "019",
			Captured: testSample.Add(time.Hour),
			Payload:  []byte{'7', 52, 0, 0, 0, 1},
		},
	})
	require.NoError(t, err)

	q := url.Values{}
	q.Set("buoy", "019")
	q.Set("start", testSample.Add(-time.Hour).Format(time.RFC3339))
	q.Set("end", testSample.Add(2*time.Hour).Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodGet, "/api/series?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	srv.handleSeries(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Equal(t, "019", doc["id"])
	require.Equal(t, []any{"2022-09-27T00:00:00Z"}, doc["datetime"])
	errs, ok := doc["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
}

func TestHandleErrors(t *testing.T) {
	srv, _, st := newTestServer(t)

	_, err := st.Put([]sbd.RawMessage{{
		Name:     "fault.sbd",
		BuoyID:   "019",
		Captured: testSample,
		Payload:  []byte("sensor fault: IMU offline"),
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/errors?buoy=019", nil)
	w := httptest.NewRecorder()
	srv.handleErrors(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	require.Equal(t, "fault.sbd", docs[0]["file_name"])
	require.Equal(t, "sensor fault: IMU offline", docs[0]["detail"])
}

func TestHandleSeriesMissingBuoy(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.handleSeries(w, httptest.NewRequest(http.MethodGet, "/api/series", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSeriesBadRange(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.handleSeries(w, httptest.NewRequest(http.MethodGet, "/api/series?buoy=019&start=yesterday", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.setStatus(model.PullStatus{BuoyID: "019", PulledAt: testSample, NewCount: 3})

	w := httptest.NewRecorder()
	srv.handleStatus(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var statuses []model.PullStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	require.Equal(t, "019", statuses[0].BuoyID)
	require.Equal(t, 3, statuses[0].NewCount)
}

func TestBroadcastReachesWebsocketClient(t *testing.T) {
	srv, reg, _ := newTestServer(t)

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWS))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The handler registers the client just after the upgrade handshake;
	// wait for it before broadcasting.
	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.clients) == 1
	}, 5*time.Second, 10*time.Millisecond)

	dec := sbd.NewDecoder(reg)
	rec, errRec := dec.Decode(sbd.RawMessage{
		BuoyID:   "019",
		Captured: testSample.Add(time.Minute),
		Payload:  wavePayload(t, reg, 1.2, testSample.Unix()),
	})
	require.Nil(t, errRec)
	srv.broadcast(feedRecord("019", rec))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var fr model.FeedRecord
	require.NoError(t, json.Unmarshal(payload, &fr))
	require.Equal(t, "019", fr.BuoyID)
	require.InDelta(t, 1.2, fr.SignificantHeight, 1e-3)
}

func TestPullBuoyUpdatesStatus(t *testing.T) {
	// A SWIFT server stub serving an empty, valid zip archive.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Minimal empty zip: end-of-central-directory record only.
		_, _ = w.Write([]byte{'P', 'K', 0x05, 0x06, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	}))
	defer upstream.Close()

	srv, _, _ := newTestServer(t)
	srv.client = telemetry.NewClient(upstream.URL)

	srv.pullBuoy(context.Background(), "019")

	srv.mu.Lock()
	status, ok := srv.status["019"]
	srv.mu.Unlock()
	require.True(t, ok)
	require.Empty(t, status.LastError)
	require.Zero(t, status.NewCount)
}

func TestPullBuoyRecordsFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer upstream.Close()

	srv, _, _ := newTestServer(t)
	srv.client = telemetry.NewClient(upstream.URL)

	srv.pullBuoy(context.Background(), "019")

	srv.mu.Lock()
	status := srv.status["019"]
	srv.mu.Unlock()
	require.NotEmpty(t, status.LastError)
}
