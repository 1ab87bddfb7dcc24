package analytics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
  "record":      {"enable": true,  "ip": "127.0.0.1", "port": 81,   "time_threshold": 10},
  "move_camera": {"enable": false, "ip": "ptz.local", "port": 5020, "time_threshold": 2.5}
}`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validJSON))
	require.NoError(t, err)

	assert.True(t, cfg.Record.Enable)
	assert.Equal(t, "http://127.0.0.1:81", cfg.Record.URI())
	assert.Equal(t, 10*time.Second, cfg.Record.Threshold())

	assert.False(t, cfg.MoveCamera.Enable)
	assert.Equal(t, "http://ptz.local:5020", cfg.MoveCamera.URI())
	assert.Equal(t, 2500*time.Millisecond, cfg.MoveCamera.Threshold())
}

func TestParse_RoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(validJSON))
	require.NoError(t, err)

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	again, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"not an object":    `[]`,
		"missing section":  `{"record": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}}`,
		"missing enable":   `{"record": {"ip": "127.0.0.1", "port": 81, "time_threshold": 1}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}}`,
		"port range":       `{"record": {"enable": true, "ip": "127.0.0.1", "port": 70000, "time_threshold": 1}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}}`,
		"negative time":    `{"record": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": -1}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}}`,
		"huge time":        `{"record": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1e12}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}}`,
		"overflowing time": `{"record": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1e300}}`,
		"bad host":         `{"record": {"enable": true, "ip": "not a host", "port": 81, "time_threshold": 1}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}}`,
		"unknown field":    `{"record": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1, "x": 1}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}}`,
		"wrong type":       `{"record": {"enable": "yes", "ip": "127.0.0.1", "port": 81, "time_threshold": 1}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 1}}`,
		"trailing garbage": validJSON + `{}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse([]byte(raw))
			assert.Nil(t, cfg)

			var verr *ConfigValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}

func TestParse_ErrorNamesJSONPath(t *testing.T) {
	_, err := Parse([]byte(`{"record": {"enable": true, "ip": "127.0.0.1", "port": 0, "time_threshold": 1}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81}}`))
	require.Error(t, err)

	assert.Contains(t, err.Error(), "record.port")
	assert.Contains(t, err.Error(), "move_camera.time_threshold: field required")
}

func TestParse_AcceptsMaxThreshold(t *testing.T) {
	cfg, err := Parse([]byte(`{"record": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 86400}, "move_camera": {"enable": true, "ip": "127.0.0.1", "port": 81, "time_threshold": 0}}`))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Record.Threshold())
	assert.Equal(t, time.Duration(0), cfg.MoveCamera.Threshold())
}

func TestThreshold_ClampsOutOfRange(t *testing.T) {
	assert.Equal(t, 24*time.Hour, ActionConfig{TimeThreshold: 1e300}.Threshold())
	assert.Equal(t, 24*time.Hour, ActionConfig{TimeThreshold: 1e12}.Threshold())
	assert.Equal(t, time.Duration(0), ActionConfig{TimeThreshold: -5}.Threshold())
	assert.Equal(t, 1500*time.Millisecond, ActionConfig{TimeThreshold: 1.5}.Threshold())
}

func TestConfiguration_Validate(t *testing.T) {
	cfg := &Configuration{
		Record:     ActionConfig{Enable: true, IP: "10.0.0.1", Port: 80, TimeThreshold: 1},
		MoveCamera: ActionConfig{Enable: true, IP: "10.0.0.2", Port: 80, TimeThreshold: 1},
	}
	assert.NoError(t, cfg.Validate())

	cfg.MoveCamera.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestActionConfig_IPv6URI(t *testing.T) {
	a := ActionConfig{IP: "fe80::1", Port: 8080}
	assert.Equal(t, "http://[fe80::1]:8080", a.URI())
}
