package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/gradevault/pkg/configs"
)

const limiterIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按 key 维护限流器，空闲超过 limiterIdle 的条目在访问时顺带清理.
type limiterSet struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	visitors  map[string]*visitor
	lastSweep time.Time
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > limiterIdle {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(s.visitors, k)
			}
		}

		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.visitors[key] = v
	}

	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// RateLimitMiddleware 令牌桶限流，key 取 global、ip 或 header:Name.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Key))
	set := &limiterSet{
		rps:       rate.Limit(cfg.RPS),
		burst:     cfg.Burst,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}

	return func(c *gin.Context) {
		if !set.allow(limitKey(c, mode), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})

			return
		}

		c.Next()
	}
}

func limitKey(c *gin.Context, mode string) string {
	switch {
	case mode == "" || mode == "global":
		return "global"
	case mode == "email":
		if email := GetEmail(c); email != "" {
			return email
		}
	case strings.HasPrefix(mode, "header:"):
		if v := c.GetHeader(strings.TrimPrefix(mode, "header:")); v != "" {
			return v
		}
	}

	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	return "unknown"
}
