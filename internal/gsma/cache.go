package gsma

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const tacKeyPrefix = "gsma:tac:"

// Cache stores TAC records in Redis with a TTL. Unknown TACs are cached too,
// as an empty value, so repeated lookups of bogus TACs do not hammer the core
// service.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached record for a TAC. found is false on a cache miss;
// a cached negative lookup returns (nil, true, nil).
func (c *Cache) Get(ctx context.Context, tac string) (*Device, bool, error) {
	raw, err := c.client.Get(ctx, tacKeyPrefix+tac).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if raw == "" {
		return nil, true, nil
	}
	var d Device
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

// Set caches a record, or a negative entry when device is nil.
func (c *Cache) Set(ctx context.Context, tac string, device *Device) error {
	value := ""
	if device != nil {
		encoded, err := json.Marshal(device)
		if err != nil {
			return err
		}
		value = string(encoded)
	}
	return c.client.Set(ctx, tacKeyPrefix+tac, value, c.ttl).Err()
}
