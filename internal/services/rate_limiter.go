package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"booking-system/internal/clock"
	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/redis"
)

// RateDecision результат проверки лимита.
type RateDecision struct {
	Allowed   bool
	Used      int64
	Remaining int64
	ResetAt   time.Time
}

// RateLimiter ограничивает число запросов в фиксированном окне на клиента.
// Счётчики окна живут в Redis, поэтому лимит общий для всех реплик.
type RateLimiter struct {
	redis   rateRedis
	log     *logger.Logger
	clock   clock.Clock
	enabled bool
	limit   int64
	window  time.Duration
	prefix  string
}

type rateRedis interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// NewRateLimiter создаёт rate limiter. Без Redis или при выключенной настройке лимит не действует.
func NewRateLimiter(redisClient *redis.Client, log *logger.Logger, cfg *config.RateLimitConfig, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if redisClient == nil || cfg == nil || !cfg.Enabled || cfg.Requests <= 0 || cfg.WindowSeconds <= 0 {
		return &RateLimiter{enabled: false, clock: clk}
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &RateLimiter{
		redis:   redisClient,
		log:     log,
		clock:   clk,
		enabled: true,
		limit:   int64(cfg.Requests),
		window:  time.Duration(cfg.WindowSeconds) * time.Second,
		prefix:  prefix,
	}
}

// Allow учитывает запрос клиента и сообщает, укладывается ли он в лимит.
func (r *RateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	now := r.clock.Now()
	if !r.enabled {
		return RateDecision{Allowed: true, Remaining: r.limit, ResetAt: now.Add(r.window)}, nil
	}

	redisKey := r.makeKey(key)
	count, err := r.redis.Incr(ctx, redisKey)
	if err != nil {
		return RateDecision{}, fmt.Errorf("rate limiter incr failed: %w", err)
	}

	if count == 1 {
		if err := r.redis.Expire(ctx, redisKey, r.window); err != nil {
			r.log.WithError(err).WithField("key", redisKey).Warn("Failed to set rate limit ttl")
		}
	}

	return RateDecision{
		Allowed:   count <= r.limit,
		Used:      count,
		Remaining: r.remaining(count),
		ResetAt:   now.Add(r.ttl(ctx, redisKey)),
	}, nil
}

// Usage возвращает состояние окна без учёта нового запроса.
func (r *RateLimiter) Usage(ctx context.Context, key string) (RateDecision, error) {
	now := r.clock.Now()
	if !r.enabled {
		return RateDecision{Allowed: true, Remaining: r.limit}, nil
	}

	redisKey := r.makeKey(key)
	count, err := r.redis.GetInt(ctx, redisKey)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return RateDecision{Allowed: true, Remaining: r.limit}, nil
		}
		return RateDecision{}, fmt.Errorf("rate limiter usage failed: %w", err)
	}

	return RateDecision{
		Allowed:   count < r.limit,
		Used:      count,
		Remaining: r.remaining(count),
		ResetAt:   now.Add(r.ttl(ctx, redisKey)),
	}, nil
}

func (r *RateLimiter) ttl(ctx context.Context, redisKey string) time.Duration {
	ttl, err := r.redis.TTL(ctx, redisKey)
	if err != nil || ttl <= 0 {
		if err != nil {
			r.log.WithError(err).WithField("key", redisKey).Warn("Failed to get rate limit ttl")
		}
		return r.window
	}
	return ttl
}

func (r *RateLimiter) remaining(count int64) int64 {
	if left := r.limit - count; left > 0 {
		return left
	}
	return 0
}

func (r *RateLimiter) makeKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.ReplaceAll(key, ":", "_"))
}

// Limit возвращает лимит для текущего окна.
func (r *RateLimiter) Limit() int64 {
	return r.limit
}

// Enabled сообщает, включён ли rate limiting.
func (r *RateLimiter) Enabled() bool {
	return r.enabled
}

// ClientKey ключ лимита: пользователь из X-User-ID, иначе IP клиента.
func ClientKey(r *http.Request) string {
	if userID := strings.TrimSpace(r.Header.Get("X-User-ID")); userID != "" {
		return "user:" + userID
	}
	return "ip:" + ExtractClientIP(r)
}

// ExtractClientIP получает IP из заголовков прокси или RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
