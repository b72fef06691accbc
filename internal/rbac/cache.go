package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubjectCache memoizes loaded subjects for the lifetime of a session.
type SubjectCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubjectCache instantiates the cache helper. A nil client disables
// caching.
func NewSubjectCache(client *redis.Client, ttl time.Duration) *SubjectCache {
	return &SubjectCache{client: client, ttl: ttl}
}

func subjectKey(userID string) string {
	return "access:subject:" + userID
}

// Get returns the cached subject and whether it was present.
func (c *SubjectCache) Get(ctx context.Context, userID string) (Subject, bool, error) {
	if c == nil || c.client == nil {
		return Subject{}, false, nil
	}
	payload, err := c.client.Get(ctx, subjectKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Subject{}, false, nil
	}
	if err != nil {
		return Subject{}, false, err
	}
	var s Subject
	if err := json.Unmarshal(payload, &s); err != nil {
		return Subject{}, false, err
	}
	return s, true, nil
}

// Put stores s.
func (c *SubjectCache) Put(ctx context.Context, s Subject) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, subjectKey(s.ID), raw, c.ttl).Err()
}

// Delete drops the cached subjects of userIDs.
func (c *SubjectCache) Delete(ctx context.Context, userIDs ...string) error {
	if c == nil || c.client == nil || len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = subjectKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}
