package ptz

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   map[string]float64
}

func newPTZServer(t *testing.T, status int) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, recorded{r.Method, r.URL.Path, body})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func hostPort(t *testing.T, srv *httptest.Server) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestHTTPClient_SetPositionAndZoom(t *testing.T) {
	srv, calls := newPTZServer(t, http.StatusOK)
	host, port := hostPort(t, srv)
	c := NewHTTPClient(host, port, 0)

	require.NoError(t, c.SetPosition(context.Background(), 12.5, -3))
	require.NoError(t, c.SetZoom(context.Background(), 2.7))

	require.Len(t, *calls, 2)
	assert.Equal(t, recorded{http.MethodPut, "/position", map[string]float64{"pan": 12.5, "tilt": -3}}, (*calls)[0])
	assert.Equal(t, recorded{http.MethodPut, "/zoom", map[string]float64{"zoom": 2.7}}, (*calls)[1])
}

func TestHTTPClient_Failure(t *testing.T) {
	srv, _ := newPTZServer(t, http.StatusInternalServerError)
	host, port := hostPort(t, srv)

	err := NewHTTPClient(host, port, 0).SetZoom(context.Background(), 1)

	var rerr *RemoteCallError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusInternalServerError, rerr.Status)
}

func TestONVIFClient_ComposesAbsoluteMoves(t *testing.T) {
	var moves [][3]float64
	c := newONVIFClient(5, 0, func(pan, tilt, zoom float64) error {
		moves = append(moves, [3]float64{pan, tilt, zoom})
		return nil
	})

	require.NoError(t, c.SetPosition(context.Background(), 90, -45))
	require.NoError(t, c.SetZoom(context.Background(), 3))
	require.NoError(t, c.SetPosition(context.Background(), 400, 0))

	require.Len(t, moves, 3)
	assert.Equal(t, [3]float64{0.5, -0.5, 0}, moves[0])
	assert.Equal(t, [3]float64{0.5, -0.5, 0.5}, moves[1])
	assert.Equal(t, [3]float64{1, 0, 0.5}, moves[2]) // pan clamped
}

func TestONVIFClient_FailureKeepsLastPosition(t *testing.T) {
	fail := true
	var last [3]float64
	c := newONVIFClient(0, 0, func(pan, tilt, zoom float64) error {
		if fail {
			return errors.New("soap fault")
		}
		last = [3]float64{pan, tilt, zoom}
		return nil
	})

	err := c.SetPosition(context.Background(), 90, 0)
	var rerr *RemoteCallError
	require.True(t, errors.As(err, &rerr))

	fail = false
	require.NoError(t, c.SetZoom(context.Background(), 1))
	assert.Equal(t, [3]float64{0, 0, 0}, last)
}

func TestONVIFClient_HonorsCancelledContext(t *testing.T) {
	c := newONVIFClient(0, 0, func(pan, tilt, zoom float64) error {
		t.Fatal("move must not be called")
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.SetPosition(ctx, 1, 1), context.Canceled)
}

func TestONVIFClient_HungCameraTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := newONVIFClient(0, 20*time.Millisecond, func(pan, tilt, zoom float64) error {
		<-release
		return nil
	})

	start := time.Now()
	err := c.SetZoom(context.Background(), 5)
	assert.Less(t, time.Since(start), time.Second)

	var rerr *RemoteCallError
	require.True(t, errors.As(err, &rerr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, c.zoom, "zoom must not advance on timeout")
}
