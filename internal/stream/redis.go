package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// latestID asks XREAD for records newer than the stream's current tail.
const latestID = "$"

// RedisSource reads a Redis stream with XREAD, one record at a time.
//
// The first read starts at the tail ("$"); every later read continues from the
// last delivered ID so records published between reads are not lost.
type RedisSource struct {
	log    *zap.Logger
	client *redis.Client
	stream string
	lastID string
}

var _ Source = (*RedisSource)(nil)

// NewRedisClient creates a Redis client tuned like the rest of the service and logs connectivity.
func NewRedisClient(log *zap.Logger, addr string, db int) *redis.Client {
	opts := &redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     2,
		MaxRetries:   3,
	}
	client := redis.NewClient(opts)

	log = log.Named("redis")
	log.Info("Redis client initialized", zap.String("addr", addr), zap.Int("db", db))
	Ping(context.TODO(), log, client)

	return client
}

// Ping checks connectivity with a short timeout and logs the outcome.
func Ping(ctx context.Context, log *zap.Logger, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	opts := client.Options()
	log = log.With(
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("max_retries", opts.MaxRetries),
	)

	start := time.Now()
	err := client.Ping(ctx).Err()
	elapsed := time.Since(start)

	if err != nil {
		log.Warn("connection failed", zap.Error(err), zap.Duration("ping_rtt", elapsed))
		return err
	}
	log.Info("connection established", zap.Duration("ping_rtt", elapsed))
	return nil
}

// NewRedisSource reads stream through client.
func NewRedisSource(log *zap.Logger, client *redis.Client, stream string) *RedisSource {
	return &RedisSource{
		log:    log.Named("redis_source"),
		client: client,
		stream: stream,
		lastID: latestID,
	}
}

// Read issues XREAD COUNT 1 BLOCK <timeout> STREAMS <stream> <lastID>.
func (s *RedisSource) Read(ctx context.Context, timeout time.Duration) (*Message, error) {
	res, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, s.lastID},
		Count:   1,
		Block:   timeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xread %s: %w", s.stream, err)
	}

	msg, ok := firstMessage(res)
	if !ok {
		return nil, nil
	}
	s.lastID = msg.ID
	return msg, nil
}

// Close releases the underlying client.
func (s *RedisSource) Close() error {
	return s.client.Close()
}

// firstMessage converts the first XREAD entry into a Message.
// Non-string field values are formatted with %v.
func firstMessage(res []redis.XStream) (*Message, bool) {
	for _, xs := range res {
		if len(xs.Messages) == 0 {
			continue
		}
		xm := xs.Messages[0]
		values := make(map[string]string, len(xm.Values))
		for k, v := range xm.Values {
			switch tv := v.(type) {
			case string:
				values[k] = tv
			case []byte:
				values[k] = string(tv)
			default:
				values[k] = fmt.Sprint(tv)
			}
		}
		return &Message{ID: xm.ID, Values: values}, true
	}
	return nil, false
}
