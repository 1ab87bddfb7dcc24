package analytics

import (
	"net"
	"strconv"
	"time"
)

// Configuration selects which actions react to detection events and where
// their downstream services live. A Configuration is immutable once accepted.
type Configuration struct {
	Record     ActionConfig `json:"record"`
	MoveCamera ActionConfig `json:"move_camera"`
}

// ActionConfig configures one action kind.
//
// TimeThreshold is in seconds: the record debounce window for Record and the
// idle time before returning home for MoveCamera.
type ActionConfig struct {
	Enable        bool    `json:"enable"`
	IP            string  `json:"ip"`
	Port          int     `json:"port"`
	TimeThreshold float64 `json:"time_threshold"`
}

// URI returns the base URI of the downstream service, e.g. "http://10.0.0.5:81".
func (a ActionConfig) URI() string {
	return "http://" + a.HostPort()
}

// HostPort joins IP and Port; IPv6 literals are bracketed.
func (a ActionConfig) HostPort() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(a.Port))
}

// MaxTimeThreshold is the largest accepted time_threshold, in seconds (one day).
const MaxTimeThreshold = 86400

// Threshold returns TimeThreshold as a duration, clamped to [0, MaxTimeThreshold].
func (a ActionConfig) Threshold() time.Duration {
	secs := min(max(a.TimeThreshold, 0), MaxTimeThreshold)
	return time.Duration(secs * float64(time.Second))
}

// ApiResponse is the status body returned by the configuration endpoint.
// Code 0 means success, 1 means the request was rejected.
type ApiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	CodeOK       = 0
	CodeRejected = 1
)
