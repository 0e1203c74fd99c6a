package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/section-scheduler/internal/config"
)

// takeToken refills the bucket stored at KEYS[1] in whole intervals, then
// takes one token.  ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {allowed (0/1), remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
local now, cap, refill, step, ttl =
  tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local st = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens, ts = tonumber(st[1]), tonumber(st[2])
if not tokens or not ts then
  tokens, ts = cap, now
end
local n = math.floor(math.max(0, now - ts) / step)
if n > 0 then
  tokens = math.min(cap, tokens + n * refill)
  ts = ts + n * step
end
local ok, wait = 0, 0
if tokens > 0 then
  ok, tokens = 1, tokens - 1
else
  wait = math.max(0, step - (now - ts))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

var errBucketReply = errors.New("ratelimit: unexpected script reply")

// bucket is one evaluated rate-limit decision.
type bucket struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

func take(c echo.Context, cfg config.RateLimitConfig, rdb *redis.Client, key string) (bucket, error) {
	res, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
		time.Now().UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucket{}, err
	}
	if len(res) != 3 {
		return bucket{}, errBucketReply
	}
	return bucket{allowed: res[0] == 1, remaining: res[1], retry: time.Duration(res[2]) * time.Millisecond}, nil
}

// NewTokenBucket limits requests per key (see buildRateKey) with a Redis
// token bucket.  When Redis fails the request is let through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if log == nil {
		log = zap.NewNop()
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			b, err := take(c, cfg, rdb, key)
			if err != nil {
				log.Warn("rate limit skipped", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(b.remaining, 10))
			if b.allowed {
				return next(c)
			}

			secs := int((b.retry + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			log.Debug("rate limited", zap.String("key", key), zap.Duration("retry", b.retry))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// rateKeyParts lists the identity components each strategy combines.
// Unknown strategies fall back to ip_user_route.
var rateKeyParts = map[string][]string{
	"ip":         {"ip"},
	"user":       {"user"},
	"route":      {"route"},
	"ip_user":    {"ip", "user"},
	"ip_route":   {"ip", "route"},
	"user_route": {"user", "route"},
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts, ok := rateKeyParts[strings.ToLower(cfg.KeyStrategy)]
	if !ok {
		parts = []string{"ip", "user", "route"}
	}
	key := []string{cfg.Prefix}
	for _, p := range parts {
		var v string
		switch p {
		case "ip":
			if v = c.RealIP(); v == "" {
				v = "unknown"
			}
		case "user":
			if v = UserID(c); v == "" {
				v = "anon"
			}
		case "route":
			v = c.Request().Method + " " + c.Path()
		}
		key = append(key, p, v)
	}
	return strings.Join(key, ":")
}
