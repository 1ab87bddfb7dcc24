// Package ptz moves pan-tilt-zoom cameras.
//
// Two drivers implement Client: HTTPClient talks to a PTZ control
// microservice, ONVIFClient talks to the camera directly over ONVIF.
package ptz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/edirooss/zmux-analytics/internal/client"
)

// Client positions a PTZ camera. Pan and tilt are in degrees; zoom is a ratio (1 = wide).
type Client interface {
	SetPosition(ctx context.Context, pan, tilt float64) error
	SetZoom(ctx context.Context, ratio float64) error
}

// Driver names accepted in the server configuration.
const (
	DriverHTTP  = "http"
	DriverONVIF = "onvif"
)

// HTTPClient drives a PTZ control service:
//
//	PUT /position {"pan": <deg>, "tilt": <deg>}
//	PUT /zoom     {"zoom": <ratio>}
type HTTPClient struct {
	baseURI string
	hc      *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient binds a client to the service at host:port.
func NewHTTPClient(host string, port int, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURI: "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		hc:      client.NewHTTPClient(timeout),
	}
}

type position struct {
	Pan  float64 `json:"pan"`
	Tilt float64 `json:"tilt"`
}

type zoom struct {
	Zoom float64 `json:"zoom"`
}

// SetPosition moves the camera to an absolute pan/tilt.
func (c *HTTPClient) SetPosition(ctx context.Context, pan, tilt float64) error {
	return c.put(ctx, "set position", "/position", position{Pan: pan, Tilt: tilt})
}

// SetZoom sets an absolute zoom ratio.
func (c *HTTPClient) SetZoom(ctx context.Context, ratio float64) error {
	return c.put(ctx, "set zoom", "/zoom", zoom{Zoom: ratio})
}

func (c *HTTPClient) put(ctx context.Context, op, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	req, err := http.NewRequest(http.MethodPut, c.baseURI+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return client.Do(ctx, c.hc, op, req)
}
