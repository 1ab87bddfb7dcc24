// Package recorder starts event recordings on the video storage service.
package recorder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edirooss/zmux-analytics/internal/client"
)

// Client triggers event recordings for a sensor.
type Client struct {
	baseURI string
	hc      *http.Client
}

// New binds a client to baseURI (e.g. "http://10.0.0.5:81").
func New(baseURI string, timeout time.Duration) *Client {
	if !strings.HasSuffix(baseURI, "/") {
		baseURI += "/"
	}
	return &Client{baseURI: baseURI, hc: client.NewHTTPClient(timeout)}
}

// BaseURI returns the normalized base URI, always ending in "/".
func (c *Client) BaseURI() string { return c.baseURI }

// RecordEvent asks the service to record an event clip for sensorID.
// Anything other than 200 OK is returned as *client.RemoteCallError.
func (c *Client) RecordEvent(ctx context.Context, sensorID string) error {
	endpoint := fmt.Sprintf("%sapi/v1/record/%s/event", c.baseURI, url.PathEscape(sensorID))

	req, err := http.NewRequest(http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	return client.Do(ctx, c.hc, "record event", req)
}
