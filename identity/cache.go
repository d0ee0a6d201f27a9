package identity

import (
	"context"
	"time"

	"civictrack-be/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const displayNamePrefix = "displayname:"

// CachedDirectory keeps display names in Redis in front of another Directory.
// Redis failures fall through to the wrapped directory.
type CachedDirectory struct {
	next Directory
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedDirectory(next Directory, rdb *redis.Client, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{next: next, rdb: rdb, ttl: ttl}
}

func (d *CachedDirectory) DisplayNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = displayNamePrefix + id.Hex()
	}

	missing := ids
	cached, err := d.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logger.L().Warn("displayname_cache_read", "err", err)
	} else {
		missing = nil
		for i, v := range cached {
			if s, ok := v.(string); ok {
				names[ids[i]] = s
				continue
			}
			missing = append(missing, ids[i])
		}
	}

	if len(missing) == 0 {
		return names, nil
	}

	fresh, err := d.next.DisplayNames(ctx, missing)
	if err != nil {
		return nil, err
	}

	pipe := d.rdb.Pipeline()
	for id, name := range fresh {
		names[id] = name
		pipe.Set(ctx, displayNamePrefix+id.Hex(), name, d.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil && len(fresh) > 0 {
		logger.L().Warn("displayname_cache_write", "err", err)
	}
	return names, nil
}
