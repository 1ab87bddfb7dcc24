// Package client holds what the downstream service clients share.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound call so a slow service cannot stall the dispatch loop forever.
const DefaultTimeout = 5 * time.Second

// RemoteCallError reports a failed call to a downstream service: either a
// transport failure (Err set) or a non-200 reply (Status set).
type RemoteCallError struct {
	Op     string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *RemoteCallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Op, e.URL, e.Status, e.Body)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// NewHTTPClient returns an HTTP client with the given overall timeout
// (DefaultTimeout when timeout <= 0).
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Do sends req and requires a 200 reply. The response body is drained and closed.
func Do(ctx context.Context, hc *http.Client, op string, req *http.Request) error {
	req = req.WithContext(ctx)
	url := req.URL.String()

	resp, err := hc.Do(req)
	if err != nil {
		return &RemoteCallError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RemoteCallError{Op: op, URL: url, Status: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
