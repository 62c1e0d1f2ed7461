package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	msgKeyNotConfigured = "API Key not configured on server"
	msgHeaderMissing    = "Authorization header missing"
	msgInvalidKey       = "Invalid API Key or scheme"
)

// APIKeyAuth accepts "Authorization: Bearer <apiKey>". When jwtSecret is set,
// a bearer HS256 token signed with it is accepted as well.
func APIKeyAuth(apiKey, jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey == "" && jwtSecret == "" {
			return respondError(c, fiber.StatusInternalServerError, msgKeyNotConfigured)
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return respondError(c, fiber.StatusForbidden, msgHeaderMissing)
		}

		scheme, token, _ := strings.Cut(header, " ")
		if !strings.EqualFold(scheme, "bearer") || token == "" {
			return respondError(c, fiber.StatusForbidden, msgInvalidKey)
		}
		if apiKey != "" && token == apiKey {
			return c.Next()
		}
		if jwtSecret != "" && validJWT(token, jwtSecret) {
			return c.Next()
		}
		return respondError(c, fiber.StatusForbidden, msgInvalidKey)
	}
}

func validJWT(tokenString, secret string) bool {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && token.Valid
}

// RateLimiter is a fixed-window request counter in Redis.
type RateLimiter struct {
	redis *redis.Client
	log   Logger
}

func NewRateLimiter(redisClient *redis.Client, log Logger) *RateLimiter {
	return &RateLimiter{redis: redisClient, log: log}
}

// Limit allows maxRequests per window for each client IP.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.IP())
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		_, err := rl.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			// Redis outages do not block analysis.
			rl.log.Warnf("Rate limiter unavailable: %v", err)
			return c.Next()
		}

		count := incr.Val()
		resetIn := ttl.Val()
		// A negative TTL means a new window, or a key whose expiry was never set.
		if resetIn < 0 {
			if err := rl.redis.Expire(ctx, key, window).Err(); err != nil {
				rl.log.Warnf("Rate limiter could not set expiry on %s: %v", key, err)
			}
			resetIn = window
		}

		if count > int64(maxRequests) {
			c.Set("Retry-After", fmt.Sprintf("%d", int(resetIn.Seconds())))
			return respondError(c, fiber.StatusTooManyRequests, "Rate limit exceeded")
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))
		return c.Next()
	}
}
