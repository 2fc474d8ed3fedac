package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DisplayKeyPrefix is the key prefix for per-device display state
	DisplayKeyPrefix = "display:device:"

	// DisplayTTL expires state for devices that stopped polling
	DisplayTTL = 30 * 24 * time.Hour
)

// DisplayState tracks which image each device currently shows. State is
// scoped per device: no device's rotation ever observes another device's
// current image. Implementations must be safe for concurrent use.
type DisplayState interface {
	// Current returns the device's current image filename; found=false when
	// nothing has been displayed yet (or the entry expired).
	Current(ctx context.Context, deviceID string) (filename string, found bool, err error)

	// SetCurrent records the device's current image.
	SetCurrent(ctx context.Context, deviceID, filename string) error

	// ClearImage removes every device entry pointing at filename, for use
	// when the image is deleted from the catalogue.
	ClearImage(ctx context.Context, filename string) error
}

// RedisDisplayState implements DisplayState on Redis, for deployments where
// several server processes share the device fleet.
type RedisDisplayState struct {
	client *redis.Client
}

func NewRedisDisplayState(client *redis.Client) DisplayState {
	return &RedisDisplayState{client: client}
}

func displayKey(deviceID string) string {
	return DisplayKeyPrefix + deviceID
}

func (c *RedisDisplayState) Current(ctx context.Context, deviceID string) (string, bool, error) {
	val, err := c.client.Get(ctx, displayKey(deviceID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get display state: %w", err)
	}
	return val, true, nil
}

func (c *RedisDisplayState) SetCurrent(ctx context.Context, deviceID, filename string) error {
	if err := c.client.Set(ctx, displayKey(deviceID), filename, DisplayTTL).Err(); err != nil {
		return fmt.Errorf("set display state: %w", err)
	}
	return nil
}

func (c *RedisDisplayState) ClearImage(ctx context.Context, filename string) error {
	iter := c.client.Scan(ctx, 0, DisplayKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := c.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("scan display state: %w", err)
		}
		if val == filename {
			if err := c.client.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("clear display state: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan display state: %w", err)
	}
	return nil
}

// MemoryDisplayState is the process-local implementation used when Redis is
// not configured, and in tests.
type MemoryDisplayState struct {
	mu      sync.RWMutex
	current map[string]string
}

func NewMemoryDisplayState() *MemoryDisplayState {
	return &MemoryDisplayState{current: make(map[string]string)}
}

func (c *MemoryDisplayState) Current(_ context.Context, deviceID string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	filename, ok := c.current[deviceID]
	return filename, ok, nil
}

func (c *MemoryDisplayState) SetCurrent(_ context.Context, deviceID, filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current[deviceID] = filename
	return nil
}

func (c *MemoryDisplayState) ClearImage(_ context.Context, filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for deviceID, current := range c.current {
		if current == filename {
			delete(c.current, deviceID)
		}
	}
	return nil
}
