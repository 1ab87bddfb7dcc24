package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edirooss/zmux-analytics/internal/domain/detection"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSSource reads detection events published on a NATS subject.
// The message body is the event metadata JSON.
type NATSSource struct {
	log *zap.Logger
	nc  *nats.Conn
	sub *nats.Subscription
}

var _ Source = (*NATSSource)(nil)

// NewNATSSource connects to url and subscribes to subject.
func NewNATSSource(log *zap.Logger, url, subject string) (*NATSSource, error) {
	log = log.Named("nats_source")

	nc, err := nats.Connect(url,
		nats.Name("zmux-analytics"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	sub, err := nc.SubscribeSync(subject)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	log.Info("subscribed", zap.String("url", url), zap.String("subject", subject))
	return &NATSSource{log: log, nc: nc, sub: sub}, nil
}

// Read waits up to timeout for the next message on the subject.
func (s *NATSSource) Read(ctx context.Context, timeout time.Duration) (*Message, error) {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m, err := s.sub.NextMsgWithContext(rctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return nil, nil
		}
		return nil, fmt.Errorf("next msg: %w", err)
	}

	id := m.Header.Get(nats.MsgIdHdr)
	if id == "" {
		id = m.Subject
	}
	return &Message{ID: id, Values: map[string]string{detection.MetadataField: string(m.Data)}}, nil
}

// Close unsubscribes and drains the connection.
func (s *NATSSource) Close() error {
	if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		s.log.Warn("unsubscribe", zap.Error(err))
	}
	return s.nc.Drain()
}
