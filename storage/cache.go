package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// cache wraps redis; a nil client turns every call into a miss / no-op
type cache struct {
	*redis.Client
}

func newCache(conn *redis.Client) *cache {
	return &cache{
		conn,
	}
}

func (c *cache) enabled() bool {
	return c != nil && c.Client != nil
}

func (c *cache) get(ctx context.Context, key string, value interface{}) error {
	if !c.enabled() {
		return redis.Nil
	}

	str, err := c.Get(ctx, key).Result()
	if err != nil {
		// returns err redis.Nil if key does not exist
		return err
	}

	return json.Unmarshal([]byte(str), value)
}

func (c *cache) set(ctx context.Context, key string, value interface{}, expiration int) error {
	if !c.enabled() {
		return nil
	}

	str, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, str, time.Duration(expiration)*time.Second).Err()
}

func (c *cache) del(ctx context.Context, keys ...string) error {
	if !c.enabled() {
		return nil
	}
	return c.Del(ctx, keys...).Err()
}

// listVersionKey is bumped by every append so a list rebuilt from an older db read is never stored
func listVersionKey(key string) string {
	return key + "|version"
}

// getList returns the members of the list at key; redis.Nil when there is no list.
// Lists are never stored empty, so an empty range is a miss.
func (c *cache) getList(ctx context.Context, key string) ([]string, error) {
	if !c.enabled() {
		return nil, redis.Nil
	}

	ids, err := c.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, redis.Nil
	}

	// an append racing a rebuild can push an id the rebuild already stored
	return dedupe(ids), nil
}

/*
	loadList watches the list's version, calls load (the db read) and stores the ids it returns
	in one MULTI/EXEC. If an insert appended in between, EXEC aborts with redis.TxFailedErr
	and nothing is stored.
	loaded reports whether load ran; when it did not, redis failed first.
*/
func (c *cache) loadList(ctx context.Context, key string, expiration int, load func() ([]interface{}, error)) (loaded bool, err error) {
	if !c.enabled() {
		return false, redis.Nil
	}

	err = c.Watch(ctx, func(tx *redis.Tx) error {
		values, err := load()
		loaded = true
		if err != nil || len(values) == 0 {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.RPush(ctx, key, values...)
			if expiration > 0 {
				pipe.Expire(ctx, key, time.Duration(expiration)*time.Second)
			}
			return nil
		})
		return err
	}, listVersionKey(key))

	return loaded, err
}

// appendList bumps the list's version and pushes value onto an existing list only (RPushX); a missing list stays missing
func (c *cache) appendList(ctx context.Context, key string, value interface{}, expiration int) error {
	if !c.enabled() {
		return nil
	}

	_, err := c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, listVersionKey(key))
		if expiration > 0 {
			pipe.Expire(ctx, listVersionKey(key), time.Duration(expiration)*time.Second)
		}
		pipe.RPushX(ctx, key, value)
		return nil
	})
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
