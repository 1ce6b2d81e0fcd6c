// Package events publishes skill commit notifications on a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stream is the Redis stream commit events are appended to.
const Stream = "skillbook:skill_commits"

// Delays between failed stream reads.
const (
	minReadBackoff = 100 * time.Millisecond
	maxReadBackoff = 5 * time.Second
)

// Event kinds.
const (
	KindSkillCreated   = "skill_created"
	KindSkillUpdated   = "skill_updated"
	KindSkillPublished = "skill_published"
)

// SkillCommitted announces that a commit was saved.
type SkillCommitted struct {
	Kind        string    `json:"kind"`
	SkillID     string    `json:"skill_id"`
	Version     int       `json:"version"`
	CommitterID string    `json:"committer_id"`
	Cmds        []string  `json:"cmds"`
	Timestamp   time.Time `json:"timestamp"`
}

// Bus reads and writes commit events through Redis Streams.
type Bus struct {
	rdb    *redis.Client
	maxLen int64
	logger *zap.Logger
}

// NewBus connects to Redis. maxLen caps the stream length approximately; 0
// leaves it unbounded.
func NewBus(ctx context.Context, redisURL string, maxLen int64, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{rdb: rdb, maxLen: maxLen, logger: logger}, nil
}

// Publish appends ev to the stream.
func (b *Bus) Publish(ctx context.Context, ev SkillCommitted) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: Stream,
		Values: map[string]interface{}{"data": string(data)},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", Stream, err)
	}
	b.logger.Debug("Published skill event",
		zap.String("kind", ev.Kind),
		zap.String("skill_id", ev.SkillID),
		zap.Int("version", ev.Version))
	return nil
}

// Subscribe streams events after lastID ("$" for new events only, "0" for
// the whole stream) until ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, lastID string) <-chan SkillCommitted {
	ch := make(chan SkillCommitted, 16)
	if lastID == "" {
		lastID = "$"
	}

	go func() {
		defer close(ch)
		backoff := minReadBackoff
		for {
			if ctx.Err() != nil {
				return
			}
			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{Stream, lastID},
				Count:   10,
				Block:   2 * time.Second,
			}).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				if errors.Is(err, redis.Nil) {
					continue
				}
				b.logger.Warn("Read skill events failed", zap.Duration("retry_in", backoff), zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff = nextBackoff(backoff)
				continue
			}
			backoff = minReadBackoff

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev SkillCommitted
					if err := json.Unmarshal([]byte(data), &ev); err != nil {
						b.logger.Warn("Skipping malformed skill event", zap.String("id", msg.ID), zap.Error(err))
						continue
					}
					select {
					case ch <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return ch
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxReadBackoff {
		return maxReadBackoff
	}
	return d
}

// Ping checks the Redis connection.
func (b *Bus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
