package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("notify: notification not found")

const (
	defaultRedisPrefix = "cramkle:notifications:"
	defaultMaxPending  = 50
	defaultPendingTTL  = 24 * time.Hour
)

// RedisQueue stores pending notifications in a Redis list so that any
// process can display them. Actions are callbacks and stay in the process
// that produced them; Act removes the entry and runs the local action.
type RedisQueue struct {
	client *redis.Client
	key    string
	max    int
	ttl    time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	actions map[string]func()
	order   []string
}

type RedisOption func(*RedisQueue)

// WithChannel namespaces the list, e.g. per user.
func WithChannel(name string) RedisOption {
	return func(q *RedisQueue) { q.key = defaultRedisPrefix + name }
}

func WithMaxPending(n int) RedisOption {
	return func(q *RedisQueue) {
		if n > 0 {
			q.max = n
		}
	}
}

func WithPendingTTL(ttl time.Duration) RedisOption {
	return func(q *RedisQueue) { q.ttl = ttl }
}

func WithLogger(logger zerolog.Logger) RedisOption {
	return func(q *RedisQueue) { q.logger = logger }
}

// NewRedisQueue connects to redisURL and verifies the connection.
func NewRedisQueue(redisURL string, opts ...RedisOption) (*RedisQueue, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(parsed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisQueueWithClient(client, opts...), nil
}

// NewRedisQueueWithClient creates a queue from an existing Redis client.
func NewRedisQueueWithClient(client *redis.Client, opts ...RedisOption) *RedisQueue {
	q := &RedisQueue{
		client:  client,
		key:     defaultRedisPrefix + "default",
		max:     defaultMaxPending,
		ttl:     defaultPendingTTL,
		logger:  zerolog.Nop(),
		actions: make(map[string]func()),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Notify pushes n to the list, trimming it to the configured length. Errors
// are logged; the caller is never blocked on a slow Redis for long.
func (q *RedisQueue) Notify(n Notification) {
	n = Stamp(n)
	payload, err := json.Marshal(n)
	if err != nil {
		q.logger.Error().Err(err).Str("notification_id", n.ID).Msg("marshal notification")
		return
	}

	if n.Action != nil {
		q.remember(n.ID, n.Action)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, q.key, payload)
	pipe.LTrim(ctx, q.key, int64(-q.max), -1)
	if q.ttl > 0 {
		pipe.Expire(ctx, q.key, q.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error().Err(err).Str("notification_id", n.ID).Msg("push notification")
	}
}

func (q *RedisQueue) remember(id string, action func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions[id] = action
	q.order = append(q.order, id)
	for len(q.order) > q.max {
		delete(q.actions, q.order[0])
		q.order = q.order[1:]
	}
}

func (q *RedisQueue) takeAction(id string) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	action := q.actions[id]
	delete(q.actions, id)
	for i, existing := range q.order {
		if existing == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return action
}

// Pending returns the stored notifications, oldest first.
func (q *RedisQueue) Pending(ctx context.Context) ([]Notification, error) {
	entries, err := q.client.LRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]Notification, 0, len(entries))
	for _, entry := range entries {
		var n Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil {
			q.logger.Warn().Err(err).Msg("skip malformed notification")
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Act removes the notification and runs its action when this process owns
// it. ErrNotFound means another surface already handled it.
func (q *RedisQueue) Act(ctx context.Context, id string) error {
	if err := q.remove(ctx, id); err != nil {
		return err
	}
	if action := q.takeAction(id); action != nil {
		action()
	}
	return nil
}

// Dismiss removes the notification without running its action.
func (q *RedisQueue) Dismiss(ctx context.Context, id string) error {
	if err := q.remove(ctx, id); err != nil {
		return err
	}
	q.takeAction(id)
	return nil
}

func (q *RedisQueue) remove(ctx context.Context, id string) error {
	entries, err := q.client.LRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	for _, entry := range entries {
		var n Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil || n.ID != id {
			continue
		}
		removed, err := q.client.LRem(ctx, q.key, 1, entry).Result()
		if err != nil {
			return fmt.Errorf("remove notification: %w", err)
		}
		if removed == 0 {
			return ErrNotFound
		}
		return nil
	}
	return ErrNotFound
}

// Ping checks if Redis is reachable.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
