// Package telemetry retrieves microSWIFT SBD archives from the SWIFT server.
// It is a thin HTTP boundary: it fetches and unpacks message archives but
// never interprets payload bytes; decoding belongs to internal/sbd.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
)

// DefaultBaseURL is the UW-APL SWIFT server.
const DefaultBaseURL = "http://swiftserver.apl.washington.edu"

// queryTimeFormat is the timestamp layout the SWIFT server expects.
const queryTimeFormat = "2006-01-02T15:04:05"

// fileTimeFormat names downloaded files, matching the server's convention.
const fileTimeFormat = "2006-01-02T15Z"

// ErrEmptyBuoyID marks a malformed request, as opposed to a valid query
// that happens to match no data.
var ErrEmptyBuoyID = errors.New("empty buoy id")

// Client queries the SWIFT server for one or more buoys.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL, defaulting to the UW-APL server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Query builds the URL-encoded request parameters for one buoy and date
// range. A zero end time defaults to now in UTC. format is "zip", "json"
// or "kml".
func Query(buoyID string, start, end time.Time, format string) (url.Values, time.Time, error) {
	if buoyID == "" {
		return nil, end, ErrEmptyBuoyID
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	v := url.Values{}
	v.Set("buoy_name", "microSWIFT "+buoyID)
	v.Set("start", start.UTC().Format(queryTimeFormat))
	v.Set("end", end.UTC().Format(queryTimeFormat))
	v.Set("format", format)
	return v, end, nil
}

// PullMessages fetches the zip archive for the buoy and date range and
// extracts every SBD entry into a RawMessage collection, handled entirely
// in memory.
func (c *Client) PullMessages(ctx context.Context, buoyID string, start, end time.Time) ([]sbd.RawMessage, error) {
	body, _, err := c.fetch(ctx, "/services/buoy", "get_data", buoyID, start, end, "zip")
	if err != nil {
		return nil, err
	}
	msgs, err := ExtractMessages(body)
	if err != nil {
		return nil, fmt.Errorf("extract archive for buoy %s: %w", buoyID, err)
	}
	return msgs, nil
}

// PullZip downloads the raw zip archive into dir and returns the file path.
// The name is deterministic: microSWIFT<ID>_<start>_to_<end>.zip.
func (c *Client) PullZip(ctx context.Context, buoyID string, start, end time.Time, dir string) (string, error) {
	return c.pullFile(ctx, "/services/buoy", "get_data", buoyID, start, end, "zip", dir)
}

// PullKML downloads the drift-track KML produced by the server into dir and
// returns the file path.
func (c *Client) PullKML(ctx context.Context, buoyID string, start, end time.Time, dir string) (string, error) {
	return c.pullFile(ctx, "/kml", "kml", buoyID, start, end, "kml", dir)
}

// PullJSON fetches JSON-formatted telemetry text for the buoy.
func (c *Client) PullJSON(ctx context.Context, buoyID string, start, end time.Time) ([]byte, error) {
	body, _, err := c.fetch(ctx, "/kml", "kml", buoyID, start, end, "json")
	return body, err
}

func (c *Client) pullFile(ctx context.Context, path, action, buoyID string, start, end time.Time, format, dir string) (string, error) {
	body, resolvedEnd, err := c.fetch(ctx, path, action, buoyID, start, end, format)
	if err != nil {
		return "", err
	}
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	name := ArchiveName(buoyID, start, resolvedEnd, format)
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, body, 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return full, nil
}

func (c *Client) fetch(ctx context.Context, path, action, buoyID string, start, end time.Time, format string) ([]byte, time.Time, error) {
	query, resolvedEnd, err := Query(buoyID, start, end, format)
	if err != nil {
		return nil, end, err
	}
	query.Set("action", action)
	u := c.BaseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, resolvedEnd, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, resolvedEnd, fmt.Errorf("query swift server: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("[telemetry] warning: close response body: %v", cerr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		if _, derr := io.Copy(io.Discard, resp.Body); derr != nil {
			log.Printf("[telemetry] warning: discard response body: %v", derr)
		}
		return nil, resolvedEnd, fmt.Errorf("swift server returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resolvedEnd, fmt.Errorf("read swift server response: %w", err)
	}
	return body, resolvedEnd, nil
}

// ArchiveName builds the deterministic local file name for a download.
func ArchiveName(buoyID string, start, end time.Time, ext string) string {
	return fmt.Sprintf("microSWIFT%s_%s_to_%s.%s",
		buoyID, start.UTC().Format(fileTimeFormat), end.UTC().Format(fileTimeFormat), ext)
}
