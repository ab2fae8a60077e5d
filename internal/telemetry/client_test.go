package telemetry

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryParameters(t *testing.T) {
	start := time.Date(2022, 9, 26, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 9, 28, 12, 30, 45, 0, time.UTC)

	v, resolved, err := Query("019", start, end, "zip")
	require.NoError(t, err)
	require.Equal(t, end, resolved)
	require.Equal(t, "microSWIFT 019", v.Get("buoy_name"))
	require.Equal(t, "2022-09-26T00:00:00", v.Get("start"))
	require.Equal(t, "2022-09-28T12:30:45", v.Get("end"))
	require.Equal(t, "zip", v.Get("format"))
}

func TestQueryEmptyBuoyID(t *testing.T) {
	_, _, err := Query("", time.Time{}, time.Time{}, "zip")
	require.ErrorIs(t, err, ErrEmptyBuoyID)
}

func TestQueryDefaultEnd(t *testing.T) {
	before := time.Now().UTC()
	_, resolved, err := Query("019", time.Time{}, time.Time{}, "zip")
	require.NoError(t, err)
	require.False(t, resolved.IsZero())
	require.False(t, resolved.Before(before))
}

func TestArchiveName(t *testing.T) {
	start := time.Date(2022, 9, 26, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 9, 28, 4, 0, 0, 0, time.UTC)
	require.Equal(t,
		"microSWIFT019_2022-09-26T00Z_to_2022-09-28T04Z.zip",
		ArchiveName("019", start, end, "zip"))
}

// buildArchive packs entries into an in-memory zip the way the SWIFT server
// serves them: flat .sbd files with capture time as the modification time.
func buildArchive(t *testing.T, entries map[string][]byte, modified time.Time) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, payload := range entries {
		hdr := &zip.FileHeader{Name: name, Modified: modified}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractMessages(t *testing.T) {
	captured := time.Date(2022, 9, 27, 0, 14, 0, 0, time.UTC)
	archive := buildArchive(t, map[string][]byte{
		"buoy-microSWIFT 019-27Sep2022-001400.sbd": {'7', 52, 0, 0, 0},
	}, captured)

	msgs, err := ExtractMessages(archive)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "buoy-microSWIFT 019-27Sep2022-001400.sbd", msgs[0].Name)
	require.Equal(t, "019", msgs[0].BuoyID)
	require.Equal(t, []byte{'7', 52, 0, 0, 0}, msgs[0].Payload)
	// Zip stores modification times with two-second resolution.
	require.WithinDuration(t, captured, msgs[0].Captured, 2*time.Second)
}

func TestExtractMessagesBadArchive(t *testing.T) {
	_, err := ExtractMessages([]byte("not a zip"))
	require.Error(t, err)
}

func TestPullMessages(t *testing.T) {
	captured := time.Date(2022, 9, 27, 0, 14, 0, 0, time.UTC)
	archive := buildArchive(t, map[string][]byte{
		"buoy-microSWIFT 019-27Sep2022-001400.sbd": {'7', 52, 1, 2, 3},
	}, captured)

	var gotPath string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"action":    r.URL.Query().Get("action"),
			"buoy_name": r.URL.Query().Get("buoy_name"),
			"format":    r.URL.Query().Get("format"),
		}
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	start := time.Date(2022, 9, 26, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 9, 28, 0, 0, 0, 0, time.UTC)

	msgs, err := c.PullMessages(context.Background(), "019", start, end)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "019", msgs[0].BuoyID)

	require.Equal(t, "/services/buoy", gotPath)
	require.Equal(t, "get_data", gotQuery["action"])
	require.Equal(t, "microSWIFT 019", gotQuery["buoy_name"])
	require.Equal(t, "zip", gotQuery["format"])
}

func TestPullMessagesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.PullMessages(context.Background(), "019", time.Time{}, time.Time{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestPullZipWritesDeterministicFile(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{"a.sbd": {1}}, time.Now())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL)
	start := time.Date(2022, 9, 26, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 9, 28, 0, 0, 0, 0, time.UTC)

	path, err := c.PullZip(context.Background(), "019", start, end, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "microSWIFT019_2022-09-26T00Z_to_2022-09-28T00Z.zip"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, archive, data)
}

func TestPullJSON(t *testing.T) {
	var gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFormat = r.URL.Query().Get("format")
		_, _ = w.Write([]byte(`{"buoys":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	body, err := c.PullJSON(context.Background(), "019", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.JSONEq(t, `{"buoys":[]}`, string(body))
	require.Equal(t, "json", gotFormat)
}

func TestPullKMLUsesKMLEndpoint(t *testing.T) {
	var gotPath, gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAction = r.URL.Query().Get("action")
		_, _ = w.Write([]byte("<kml/>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL)
	path, err := c.PullKML(context.Background(), "019",
		time.Date(2022, 9, 26, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 9, 28, 0, 0, 0, 0, time.UTC), dir)
	require.NoError(t, err)
	require.Equal(t, "/kml", gotPath)
	require.Equal(t, "kml", gotAction)
	require.Equal(t, ".kml", filepath.Ext(path))
}
