package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/ledgerbot/core/logger"
	"github.com/m3rciful/ledgerbot/core/telegram/state"
	"log/slog"
)

const defaultSessionTTL = 24 * time.Hour

type redisManager struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures the redis session backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisManager constructs a redis-backed Manager. Sessions expire after
// the configured idle TTL, which bounds abandoned flows.
func NewRedisManager(opts RedisOptions) (Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis ping: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &redisManager{client: client, ttl: ttl}, nil
}

func sessionKey(userID int64) string {
	return "session:" + strconv.FormatInt(userID, 10)
}

func (m *redisManager) Get(ctx context.Context, userID int64) (*Session, error) {
	data, err := m.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	if sess.Step == "" {
		sess.Step = state.StepIdle
	}
	return &sess, nil
}

func (m *redisManager) Update(ctx context.Context, userID int64, fn func(*Session)) error {
	sess, err := m.Get(ctx, userID)
	if err != nil {
		return err
	}
	fn(sess)

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := m.client.Set(ctx, sessionKey(userID), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("session: set: %w", err)
	}
	return nil
}

func (m *redisManager) Clear(ctx context.Context, userID int64) error {
	if err := m.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// CurrentStep degrades to idle when redis is unreachable so text routing
// still works, at the cost of dropping into the generic handler.
func (m *redisManager) CurrentStep(userID int64) state.Step {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess, err := m.Get(ctx, userID)
	if err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelWarn, "session.step.fallback",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return state.StepIdle
	}
	return sess.Step
}
