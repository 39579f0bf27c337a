package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RedisLimiter throttles reset-code requests per email. Each key gets a
// cooldown between requests and a cap per window; going over the cap blocks
// the key for three windows.
type RedisLimiter struct {
	rdb         *redis.Client
	window      time.Duration
	maxInWindow int
	cooldown    time.Duration
}

func NewRedisLimiter(rdb *redis.Client, window time.Duration, max int, cooldown time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: window, maxInWindow: max, cooldown: cooldown}
}

// Allow implements service.ResetLimiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (time.Duration, error) {
	blockKey := "otp:block:" + key
	lastKey := "otp:last:" + key
	countKey := "otp:count:" + key

	if ttl, err := l.rdb.TTL(ctx, blockKey).Result(); err != nil {
		return 0, err
	} else if ttl > 0 {
		return ttl, nil
	}
	if ttl, err := l.rdb.TTL(ctx, lastKey).Result(); err != nil {
		return 0, err
	} else if ttl > 0 {
		return ttl, nil
	}

	cnt, err := l.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return 0, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, countKey, l.window).Err(); err != nil {
			return 0, err
		}
	}
	if int(cnt) > l.maxInWindow {
		block := l.window * 3
		if err := l.rdb.Set(ctx, blockKey, "1", block).Err(); err != nil {
			return 0, err
		}
		return block, nil
	}
	if err := l.rdb.Set(ctx, lastKey, "1", l.cooldown).Err(); err != nil {
		return 0, err
	}
	return 0, nil
}

// MemoryLimiter is the single-instance fallback when redis is not configured.
// It keeps one token bucket per key sized to maxInWindow and also enforces
// the cooldown between consecutive requests.
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*memBucket
	every    rate.Limit
	burst    int
	cooldown time.Duration
	now      func() time.Time
}

type memBucket struct {
	lim  *rate.Limiter
	last time.Time
}

func NewMemoryLimiter(window time.Duration, max int, cooldown time.Duration) *MemoryLimiter {
	if max < 1 {
		max = 1
	}
	return &MemoryLimiter{
		buckets:  make(map[string]*memBucket),
		every:    rate.Every(window / time.Duration(max)),
		burst:    max,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow implements service.ResetLimiter
func (l *MemoryLimiter) Allow(_ context.Context, key string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &memBucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	if !b.last.IsZero() {
		if wait := b.last.Add(l.cooldown).Sub(now); wait > 0 {
			return wait, nil
		}
	}
	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return l.cooldown, nil
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return wait, nil
	}
	b.last = now
	return 0, nil
}

// IPRateLimit is a token bucket per client IP for unauthenticated endpoints.
func IPRateLimit(perSecond float64, burst int) gin.HandlerFunc {
	type bucket struct {
		lim  *rate.Limiter
		seen time.Time
	}
	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
		ttl     = 5 * time.Minute
		sweep   = time.Now()
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(sweep) > time.Minute {
			for k, b := range buckets {
				if now.Sub(b.seen) > ttl {
					delete(buckets, k)
				}
			}
			sweep = now
		}
		b, ok := buckets[ip]
		if !ok {
			b = &bucket{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
			buckets[ip] = b
		}
		b.seen = now
		allowed := b.lim.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please slow down."})
			return
		}
		c.Next()
	}
}
