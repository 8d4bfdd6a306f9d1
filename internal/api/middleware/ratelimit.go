package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SoumitraRai/BiFrost/internal/api/response"
)

type slidingWindowCounter struct {
	mu         sync.Mutex
	timestamps []int64
}

var rateLimiterStore sync.Map

// RateLimitByIP applies a sliding-window cap per client address. Used on the
// auth endpoints, which are the only unauthenticated write surface.
func RateLimitByIP(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()

		entryAny, _ := rateLimiterStore.LoadOrStore(key, &slidingWindowCounter{
			timestamps: make([]int64, 0, limit),
		})
		entry := entryAny.(*slidingWindowCounter)

		now := time.Now().UnixNano()
		cutoff := now - window.Nanoseconds()

		entry.mu.Lock()
		next := entry.timestamps[:0]
		for _, ts := range entry.timestamps {
			if ts > cutoff {
				next = append(next, ts)
			}
		}
		entry.timestamps = next

		if len(entry.timestamps) >= limit {
			entry.mu.Unlock()
			response.Error(c, 429, "Too many requests.")
			c.Abort()
			return
		}

		entry.timestamps = append(entry.timestamps, now)
		entry.mu.Unlock()

		c.Next()
	}
}
