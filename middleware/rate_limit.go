package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/lukewen/studyblog/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

var (
	limiters   = map[string]*rateLimiter{}
	limitersMu sync.Mutex
)

// RateLimit applies a per-IP token bucket; used on the login route to slow
// down password guessing.
func RateLimit(perMinute int) gin.HandlerFunc {
	if perMinute < 1 {
		perMinute = 1
	}
	r := rate.Every(time.Minute / time.Duration(perMinute))
	burst := perMinute/2 + 1

	return func(ctx *gin.Context) {
		limiter := getLimiter(ctx.ClientIP(), r, burst)
		if !limiter.Allow() {
			utils.Error(ctx, 429, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func getLimiter(key string, limit rate.Limit, burst int) *rate.Limiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	now := time.Now()
	for k, l := range limiters {
		if now.After(l.expires) {
			delete(limiters, k)
		}
	}

	if l, ok := limiters[key]; ok {
		l.expires = now.Add(5 * time.Minute)
		return l.limiter
	}

	l := &rateLimiter{limiter: rate.NewLimiter(limit, burst), expires: now.Add(5 * time.Minute)}
	limiters[key] = l
	return l.limiter
}
