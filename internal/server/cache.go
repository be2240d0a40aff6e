package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/hexrange/pkg/hex"
	"github.com/gravitas-games/hexrange/pkg/render"
)

// Cache stores encoded PNGs by request key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, png []byte) error
	Close() error
}

// RedisCache keeps renders in Redis with a fixed TTL
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps an already connected client
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, png []byte) error {
	return c.client.Set(ctx, c.prefix+key, png, c.ttl).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

// cacheKey identifies every input that affects the rendered bytes. Points
// inside the same hex share a key.
func cacheKey(req render.Request, center hex.Axial) string {
	p := req.Palette
	return fmt.Sprintf("%dx%d|%s|%g,%g|%g,%g|%s|%d|%s,%s,%s,%s|%g",
		req.Viewport.Width, req.Viewport.Height,
		req.Geometry.Orientation, req.Geometry.SizeX, req.Geometry.SizeY,
		req.Geometry.Origin.X, req.Geometry.Origin.Y,
		center.Key(), req.Range,
		render.FormatHexColor(p.Background), render.FormatHexColor(p.Base),
		render.FormatHexColor(p.Accent), render.FormatHexColor(p.Border),
		req.BorderWidth)
}
