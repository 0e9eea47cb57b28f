package fdsn

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"quakeingest/internal/core/window"
	perr "quakeingest/internal/platform/errors"
)

// DefaultEndpoint is the USGS event query endpoint
const DefaultEndpoint = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// Fetcher opens the response body for one window
type Fetcher interface {
	Fetch(ctx context.Context, w window.Window) (io.ReadCloser, error)
}

// HTTPFetcher queries an FDSN event endpoint over HTTP
type HTTPFetcher struct {
	Client   *http.Client
	Endpoint string
}

// NewHTTPFetcher creates a fetcher with an overall request timeout; 0 means none.
// The timeout covers reading the body, so it must allow for a full window
func NewHTTPFetcher(endpoint string, timeout time.Duration) *HTTPFetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}, Endpoint: endpoint}
}

// Query builds the request URL for w
func (f *HTTPFetcher) Query(w window.Window) (string, error) {
	u, err := url.Parse(f.Endpoint)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeConfig, "parse endpoint %q", f.Endpoint)
	}
	q := u.Query()
	q.Set("starttime", w.Start.Format(time.DateOnly))
	q.Set("endtime", w.End.Format(time.DateOnly))
	q.Set("format", "geojson")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch issues the query for w and returns the body for streaming. A non-200
// answer is a *StatusError; failing to reach the service is a Transport error
func (f *HTTPFetcher) Fetch(ctx context.Context, w window.Window) (io.ReadCloser, error) {
	target, err := f.Query(w)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "build request")
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeTransport, "get %s", target)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &StatusError{Status: resp.StatusCode, Reason: reason(resp), URL: target}
	}
	return resp.Body, nil
}

// reason is the text after the code in the status line, "Bad Request" for "400 Bad Request"
func reason(resp *http.Response) string {
	if s := resp.Status; len(s) > 4 && s[3] == ' ' {
		return s[4:]
	}
	return http.StatusText(resp.StatusCode)
}
