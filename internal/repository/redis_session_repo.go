package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"firesafety/internal/models"
)

const redisSessionPrefix = "firesafety:session:"

// RedisSessionRepository keeps sessions in Redis with a TTL matching their lifetime
type RedisSessionRepository struct {
	rdb *goredis.Client
	now func() time.Time
}

var _ Sessions = (*RedisSessionRepository)(nil)

// NewRedisSessionRepository wraps an existing client
func NewRedisSessionRepository(rdb *goredis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, now: time.Now}
}

// DialRedis connects and pings the server
func DialRedis(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// CreateSession stores the session until it expires
func (r *RedisSessionRepository) CreateSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	session := &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: r.now().UTC(),
	}
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil, fmt.Errorf("failed to create session: already expired")
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, redisSessionPrefix+sessionID, raw, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession returns the session or nil when it is missing or evicted
func (r *RedisSessionRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	raw, err := r.rdb.Get(ctx, redisSessionPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session
func (r *RedisSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, redisSessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op; Redis expires keys itself
func (r *RedisSessionRepository) DeleteExpiredSessions(ctx context.Context) error {
	return nil
}
