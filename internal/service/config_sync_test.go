package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edirooss/zmux-analytics/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validConfig = `{
  "record": {"enable": true, "ip": "127.0.0.1", "port": 8080, "time_threshold": 10},
  "move_camera": {"enable": false, "ip": "10.0.0.5", "port": 9000, "time_threshold": 20}
}`

func newSync(t *testing.T, content string) (*ConfigSyncService, *gateway.Gateway) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analytics.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	gw := gateway.New(zap.NewNop())
	return NewConfigSyncService(zap.NewNop(), gw, path, 20*time.Millisecond), gw
}

func TestConfigSync_BootValid(t *testing.T) {
	s, _ := newSync(t, validConfig)

	cfg, ok := s.Boot()
	require.True(t, ok)
	assert.True(t, cfg.Record.Enable)
	assert.Equal(t, 8080, cfg.Record.Port)
	assert.False(t, cfg.MoveCamera.Enable)
	assert.Equal(t, "http://10.0.0.5:9000", cfg.MoveCamera.URI())
}

func TestConfigSync_BootInvalidOrMissing(t *testing.T) {
	s, _ := newSync(t, `{"record": {"enable": true}}`)
	_, ok := s.Boot()
	assert.False(t, ok)

	s, _ = newSync(t, "")
	_, ok = s.Boot()
	assert.False(t, ok)
}

func TestConfigSync_WatchPutsValidEdits(t *testing.T) {
	s, gw := newSync(t, validConfig)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(s.Path(), []byte(`not json`), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, gw.Len(), "invalid edit must be ignored")

	edited := `{
  "record": {"enable": false, "ip": "127.0.0.1", "port": 8080, "time_threshold": 10},
  "move_camera": {"enable": true, "ip": "10.0.0.5", "port": 9000, "time_threshold": 5}
}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(edited), 0o644))

	assert.Eventually(t, func() bool { return gw.Len() > 0 }, 2*time.Second, 10*time.Millisecond)
	cfg, ok := gw.TryTake()
	require.True(t, ok)
	assert.True(t, cfg.MoveCamera.Enable)
	assert.Equal(t, 5*time.Second, cfg.MoveCamera.Threshold())
}

func TestConfigSync_WatchStopsOnCancel(t *testing.T) {
	s, _ := newSync(t, validConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Watch(ctx))
}
