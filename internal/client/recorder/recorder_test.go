package recorder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edirooss/zmux-analytics/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvent(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	require.NoError(t, c.RecordEvent(context.Background(), "sensor 1"))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/record/sensor%201/event", gotPath)
}

func TestNew_NormalizesTrailingSlash(t *testing.T) {
	assert.Equal(t, "http://h:1/", New("http://h:1", 0).BaseURI())
	assert.Equal(t, "http://h:1/", New("http://h:1/", 0).BaseURI())
}

func TestRecordEvent_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sensor unknown", http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(srv.URL, 0).RecordEvent(context.Background(), "x")

	var rerr *client.RemoteCallError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusNotFound, rerr.Status)
	assert.Contains(t, rerr.Body, "sensor unknown")
}

func TestRecordEvent_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, 0).RecordEvent(context.Background(), "x")

	var rerr *client.RemoteCallError
	require.True(t, errors.As(err, &rerr))
	assert.Error(t, rerr.Err)
}
