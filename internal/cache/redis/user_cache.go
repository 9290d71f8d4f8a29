package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"dict-relay-bot/internal/common/logger"
	domain "dict-relay-bot/internal/domain/user"
	rplatform "dict-relay-bot/internal/platform/redis"
)

// CachedUserRepository is a read-through cache over a user repository.
// Every inbound message resolves a user by id, and every operator reply
// resolves one by thread id; both lookups are served from Redis when warm.
// Cache failures fall back to the underlying repository.
type CachedUserRepository struct {
	inner  domain.Repository
	client *rplatform.Client
	ttl    time.Duration
}

func NewCachedUserRepository(inner domain.Repository, client *rplatform.Client, ttl time.Duration) *CachedUserRepository {
	return &CachedUserRepository{inner: inner, client: client, ttl: ttl}
}

func keyByID(id int64) string           { return fmt.Sprintf("user:id:%d", id) }
func keyByThread(threadID int64) string { return fmt.Sprintf("user:thread:%d", threadID) }

// GetByID returns the cached user, falling back to the repository on a miss.
func (c *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if v, err := c.client.Get(ctx, keyByID(id)).Bytes(); err == nil {
		var u domain.User
		if err := json.Unmarshal(v, &u); err == nil {
			return &u, nil
		}
	} else if err != goredis.Nil {
		logger.Debug().Err(err).Int64("user_id", id).Msg("User cache read failed")
	}

	u, err := c.inner.GetByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}
	c.store(ctx, u)
	return u, nil
}

// GetByThreadID resolves thread → user id in cache, then the user by id.
func (c *CachedUserRepository) GetByThreadID(ctx context.Context, threadID int64) (*domain.User, error) {
	if v, err := c.client.Get(ctx, keyByThread(threadID)).Result(); err == nil {
		if id, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			return c.GetByID(ctx, id)
		}
	} else if err != goredis.Nil {
		logger.Debug().Err(err).Int64("thread_id", threadID).Msg("Thread cache read failed")
	}

	u, err := c.inner.GetByThreadID(ctx, threadID)
	if err != nil || u == nil {
		return u, err
	}
	c.store(ctx, u)
	if err := c.client.Set(ctx, keyByThread(threadID), strconv.FormatInt(u.ID, 10), c.ttl).Err(); err != nil {
		logger.Debug().Err(err).Int64("thread_id", threadID).Msg("Thread cache write failed")
	}
	return u, nil
}

// Upsert writes through and refreshes the cached record.
func (c *CachedUserRepository) Upsert(ctx context.Context, id int64, p domain.Profile) (*domain.User, error) {
	u, err := c.inner.Upsert(ctx, id, p)
	if err != nil {
		return nil, err
	}
	c.store(ctx, u)
	return u, nil
}

// SetThreadID writes through, drops the stale record and maps the thread.
func (c *CachedUserRepository) SetThreadID(ctx context.Context, id, threadID int64) (bool, error) {
	ok, err := c.inner.SetThreadID(ctx, id, threadID)
	if err != nil {
		return ok, err
	}
	c.invalidate(ctx, id)
	if ok {
		if err := c.client.Set(ctx, keyByThread(threadID), strconv.FormatInt(id, 10), c.ttl).Err(); err != nil {
			logger.Debug().Err(err).Int64("thread_id", threadID).Msg("Thread cache write failed")
		}
	}
	return ok, nil
}

// SetBanned writes through and drops the stale record.
func (c *CachedUserRepository) SetBanned(ctx context.Context, id int64, banned bool) (bool, error) {
	ok, err := c.inner.SetBanned(ctx, id, banned)
	if err != nil {
		return ok, err
	}
	c.invalidate(ctx, id)
	return ok, nil
}

// List is served by the repository; listing is an admin path, not cached.
func (c *CachedUserRepository) List(ctx context.Context) ([]domain.User, error) {
	return c.inner.List(ctx)
}

// Count is served by the repository.
func (c *CachedUserRepository) Count(ctx context.Context) (total, banned int, err error) {
	return c.inner.Count(ctx)
}

func (c *CachedUserRepository) store(ctx context.Context, u *domain.User) {
	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyByID(u.ID), b, c.ttl).Err(); err != nil {
		logger.Debug().Err(err).Int64("user_id", u.ID).Msg("User cache write failed")
	}
}

func (c *CachedUserRepository) invalidate(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, keyByID(id)).Err(); err != nil {
		logger.Debug().Err(err).Int64("user_id", id).Msg("User cache invalidation failed")
	}
}
