package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	dom "taskflow/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyBoard   = "task:board:"   // + userID
	keyOverdue = "task:overdue:" // + userID
	keyQuery   = "task:query:"   // + userID + ":" + normalized filter
)

// TaskCache caches per-user board listings in Redis. A miss is (nil, nil);
// errors are for the caller to shrug at, the repo is always authoritative.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a TaskCache with the given TTL for every entry.
func New(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

// GetBoard returns the cached full board for a user, or nil on miss.
func (c *TaskCache) GetBoard(ctx context.Context, userID int64) ([]dom.Task, error) {
	return c.get(ctx, boardKey(userID))
}

// SetBoard stores the full board for a user.
func (c *TaskCache) SetBoard(ctx context.Context, userID int64, list []dom.Task) error {
	return c.set(ctx, boardKey(userID), list)
}

// GetQuery returns a cached filtered listing, or nil on miss.
func (c *TaskCache) GetQuery(ctx context.Context, userID int64, filter string) ([]dom.Task, error) {
	return c.get(ctx, queryKey(userID, filter))
}

// SetQuery stores a filtered listing.
func (c *TaskCache) SetQuery(ctx context.Context, userID int64, filter string, list []dom.Task) error {
	return c.set(ctx, queryKey(userID, filter), list)
}

// GetOverdue returns the cached overdue list, or nil on miss.
func (c *TaskCache) GetOverdue(ctx context.Context, userID int64) ([]dom.Task, error) {
	return c.get(ctx, keyOverdue+uid(userID))
}

// SetOverdue stores the overdue list.
func (c *TaskCache) SetOverdue(ctx context.Context, userID int64, list []dom.Task) error {
	return c.set(ctx, keyOverdue+uid(userID), list)
}

// InvalidateAll drops every cached listing for the user. Called on any
// write, including batch sync applies.
func (c *TaskCache) InvalidateAll(ctx context.Context, userID int64) error {
	if err := c.rdb.Del(ctx, boardKey(userID), keyOverdue+uid(userID)).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, keyQuery+uid(userID)+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *TaskCache) get(ctx context.Context, key string) ([]dom.Task, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []dom.Task
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *TaskCache) set(ctx context.Context, key string, list []dom.Task) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

func boardKey(userID int64) string { return keyBoard + uid(userID) }

func queryKey(userID int64, filter string) string {
	return keyQuery + uid(userID) + ":" + strings.ToLower(strings.TrimSpace(filter))
}

func uid(userID int64) string { return strconv.FormatInt(userID, 10) }
