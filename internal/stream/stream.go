// Package stream reads detection records from the message backend.
package stream

import (
	"context"
	"time"
)

// Message is one stream record: its backend ID and its string fields.
type Message struct {
	ID     string
	Values map[string]string
}

// Source yields at most one new record per Read.
//
// Read blocks for up to timeout and returns (nil, nil) when nothing arrived.
// The bounded wait is what lets the caller run periodic work between records.
type Source interface {
	Read(ctx context.Context, timeout time.Duration) (*Message, error)
	Close() error
}

// Driver names accepted in the server configuration.
const (
	DriverRedis = "redis"
	DriverNATS  = "nats"
)
