package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/billtrack/billtrack/internal/model"
)

const (
	receiversKey  = "bills:receivers"
	userKeyPrefix = "user:"

	// ReceiversTTL bounds staleness of the receiver list if an
	// invalidation is lost.
	ReceiversTTL = 10 * time.Minute

	// UserTTL is the TTL for cached user roles.
	UserTTL = 5 * time.Minute
)

type cachedUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	UserType  string `json:"user_type"`
	CreatedAt int64  `json:"created_at"`
}

// GetReceivers returns the cached sorted receiver list.
// Returns ErrCacheMiss if not present.
func (c *Cache) GetReceivers(ctx context.Context) ([]string, error) {
	data, err := c.client.Get(ctx, receiversKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var receivers []string
	if err := json.Unmarshal(data, &receivers); err != nil {
		// Corrupted entry - treat as miss
		return nil, ErrCacheMiss
	}

	return receivers, nil
}

// SetReceivers stores the receiver list.
func (c *Cache) SetReceivers(ctx context.Context, receivers []string) error {
	data, err := json.Marshal(receivers)
	if err != nil {
		return fmt.Errorf("failed to encode receivers: %w", err)
	}

	if err := c.client.Set(ctx, receiversKey, data, ReceiversTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache receivers: %w", err)
	}

	return nil
}

// InvalidateReceivers drops the receiver list. Called after a bill is created.
func (c *Cache) InvalidateReceivers(ctx context.Context) error {
	if err := c.client.Del(ctx, receiversKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate receivers: %w", err)
	}
	return nil
}

// GetUser returns a cached user by email.
// Returns ErrCacheMiss if not present.
func (c *Cache) GetUser(ctx context.Context, email string) (*model.User, error) {
	data, err := c.client.Get(ctx, userKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, ErrCacheMiss
	}

	return &model.User{
		ID:        cached.ID,
		Email:     cached.Email,
		UserType:  model.UserType(cached.UserType),
		CreatedAt: time.Unix(0, cached.CreatedAt).UTC(),
	}, nil
}

// SetUser stores a user under its normalized email.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Email:     user.Email,
		UserType:  string(user.UserType),
		CreatedAt: user.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := c.client.Set(ctx, userKey(user.Email), data, UserTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}

	return nil
}

// InvalidateUser drops a cached user.
func (c *Cache) InvalidateUser(ctx context.Context, email string) error {
	if err := c.client.Del(ctx, userKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user: %w", err)
	}
	return nil
}

func userKey(email string) string {
	return userKeyPrefix + model.NormalizeEmail(email)
}
