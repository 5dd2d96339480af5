// Package cache keeps rendered catalog responses in Redis.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/thousandways/scitore-api/internal/config"
)

const (
	keyPrefix   = "scitore:catalog"
	maxBodySize = 1 << 20
	scanBatch   = 200
)

// NewClient connects to REDIS_ADDR. It returns nil when no address is
// configured or the server does not answer, and callers run uncached.
func NewClient(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, catalog cache disabled", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ResponseCache serves repeated GETs from Redis. A nil client disables it.
type ResponseCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewResponseCache(rdb *redis.Client, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ResponseCache{rdb: rdb, ttl: ttl}
}

func (rc *ResponseCache) Enabled() bool { return rc != nil && rc.rdb != nil }

// Middleware caches 200 responses to GET requests keyed by path and query.
func (rc *ResponseCache) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rc.Enabled() || c.Method() != fiber.MethodGet {
			return c.Next()
		}

		ctx := c.UserContext()
		key := Key(c.Path(), string(c.Request().URI().QueryString()))

		if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
			if contentType, body, ok := decode(bs); ok {
				c.Set(fiber.HeaderContentType, contentType)
				c.Set("X-Cache", "HIT")
				return c.Status(fiber.StatusOK).Send(body)
			}
		} else if err != redis.Nil {
			slog.Warn("cache read failed", "key", key, "error", err)
		}

		c.Set("X-Cache", "MISS")
		if err := c.Next(); err != nil {
			return err
		}

		resp := c.Response()
		if resp.StatusCode() != fiber.StatusOK || len(resp.Body()) > maxBodySize {
			return nil
		}
		payload := encode(string(resp.Header.ContentType()), resp.Body())
		if err := rc.rdb.Set(context.Background(), key, payload, rc.ttl).Err(); err != nil {
			slog.Warn("cache write failed", "key", key, "error", err)
		}
		return nil
	}
}

// PurgeOnWrite drops every cached catalog response after a successful
// non-GET request.
func (rc *ResponseCache) PurgeOnWrite() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if !rc.Enabled() || c.Method() == fiber.MethodGet {
			return nil
		}
		if status := c.Response().StatusCode(); status >= 200 && status < 300 {
			if err := rc.Purge(c.UserContext()); err != nil {
				slog.Warn("cache purge failed", "error", err)
			}
		}
		return nil
	}
}

func (rc *ResponseCache) Purge(ctx context.Context) error {
	if !rc.Enabled() {
		return nil
	}
	iter := rc.rdb.Scan(ctx, 0, keyPrefix+":*", scanBatch).Iterator()
	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatch {
			if err := rc.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return rc.rdb.Del(ctx, keys...).Err()
	}
	return nil
}

// Key hashes path and query under the catalog prefix.
func Key(path, query string) string {
	sum := sha1.Sum([]byte(path + "?" + query))
	return fmt.Sprintf("%s:%x", keyPrefix, sum[:])
}

// encode packs [4 bytes content-type length][content-type][body].
func encode(contentType string, body []byte) []byte {
	out := make([]byte, 4+len(contentType)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(contentType)))
	copy(out[4:], contentType)
	copy(out[4+len(contentType):], body)
	return out
}

func decode(bs []byte) (string, []byte, bool) {
	if len(bs) < 4 {
		return "", nil, false
	}
	n := int(binary.BigEndian.Uint32(bs[0:4]))
	if n < 0 || 4+n > len(bs) {
		return "", nil, false
	}
	return string(bs[4 : 4+n]), bs[4+n:], true
}
