package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"shiftmate/backend/pkg/response"
)

// WindowLimiter 分布式滑动窗口限流（pkg/redis.Client 实现）
type WindowLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 速率限制中间件
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// remote 为 nil 或出错时回退到进程内令牌桶
func RateLimit(remote WindowLimiter, limit int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(limit, window)

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		var (
			allowed bool
			err     error
		)
		if remote != nil {
			allowed, err = remote.CheckRateLimit(c.Request.Context(), key, limit, window)
		}
		if remote == nil || err != nil {
			allowed = local.allow(key)
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ── 进程内令牌桶 ──

const localLimiterMaxKeys = 10000

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	every   rate.Limit
	burst   int
	idle    time.Duration
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &localLimiter{
		entries: make(map[string]*limiterEntry),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		idle:    window,
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= localLimiterMaxKeys {
			l.sweep(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// sweep 清理超过一个窗口未访问的条目
func (l *localLimiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.entries, k)
		}
	}
}
