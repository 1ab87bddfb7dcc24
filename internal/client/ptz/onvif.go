package ptz

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/aviravitz/onvif-client/camera"
	"github.com/aviravitz/onvif-client/ptzservice"
	"github.com/edirooss/zmux-analytics/internal/client"
)

// ONVIFOptions holds the camera-side settings the analytics configuration does not carry.
type ONVIFOptions struct {
	User         string
	Password     string
	ProfileToken string
	MaxZoom      float64       // optical zoom ratio mapped to the top of ONVIF's [0,1] zoom space
	Timeout      time.Duration // bound on each AbsoluteMove; 0 = client.DefaultTimeout
}

// mover is the subset of the ONVIF PTZ service used here.
type mover func(pan, tilt, zoom float64) error

// ONVIFClient drives a camera through ONVIF AbsoluteMove.
//
// ONVIF moves are absolute in all three axes at once, so the client keeps the
// last commanded position and re-sends it with whichever axis changed.
type ONVIFClient struct {
	maxZoom float64
	timeout time.Duration
	move    mover

	mu        sync.Mutex
	pan, tilt float64 // normalized [-1, 1]
	zoom      float64 // normalized [0, 1]
}

var _ Client = (*ONVIFClient)(nil)

// NewONVIFClient connects to the camera at host:port.
func NewONVIFClient(host string, port int, opts ONVIFOptions) (*ONVIFClient, error) {
	cam, err := camera.CreateCamera(host, strconv.Itoa(port), opts.User, opts.Password)
	if err != nil {
		return nil, fmt.Errorf("onvif camera %s:%d: %w", host, port, err)
	}
	token := opts.ProfileToken

	return newONVIFClient(opts.MaxZoom, opts.Timeout, func(pan, tilt, zoom float64) error {
		return ptzservice.AbsoluteMove(cam, token, pan, tilt, zoom)
	}), nil
}

func newONVIFClient(maxZoom float64, timeout time.Duration, move mover) *ONVIFClient {
	if maxZoom <= 1 {
		maxZoom = 10
	}
	if timeout <= 0 {
		timeout = client.DefaultTimeout
	}
	return &ONVIFClient{maxZoom: maxZoom, timeout: timeout, move: move}
}

// SetPosition converts degrees to ONVIF's normalized pan/tilt space.
func (c *ONVIFClient) SetPosition(ctx context.Context, pan, tilt float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p, t := clamp(pan/180, -1, 1), clamp(tilt/90, -1, 1)
	if err := c.absoluteMove(ctx, p, t, c.zoom); err != nil {
		return &RemoteCallError{Op: "onvif absolute move", Err: err}
	}
	c.pan, c.tilt = p, t
	return nil
}

// SetZoom maps ratio 1..MaxZoom onto ONVIF's [0,1] zoom space.
func (c *ONVIFClient) SetZoom(ctx context.Context, ratio float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	z := clamp((ratio-1)/(c.maxZoom-1), 0, 1)
	if err := c.absoluteMove(ctx, c.pan, c.tilt, z); err != nil {
		return &RemoteCallError{Op: "onvif absolute move", Err: err}
	}
	c.zoom = z
	return nil
}

// absoluteMove runs one move under the client timeout. The SOAP call takes no
// context, so a move that outlives the deadline finishes in the background and
// its result is discarded; the recorded position is left unchanged.
func (c *ONVIFClient) absoluteMove(ctx context.Context, pan, tilt, zoom float64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.move(pan, tilt, zoom) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("no reply from camera: %w", ctx.Err())
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
