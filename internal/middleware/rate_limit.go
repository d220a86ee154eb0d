package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"dealhub/pkg/log"
)

// RateLimit per-client-IP token bucket. Limiters are kept per key under a
// mutex; gin handlers run concurrently.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	return RateLimitWithKey(rps, burst, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// UserRateLimit per-user token bucket, falling back to the client IP for
// unauthenticated requests. Mounted after Auth.
func UserRateLimit(rps float64, burst int) gin.HandlerFunc {
	return RateLimitWithKey(rps, burst, func(c *gin.Context) string {
		if id, ok := GetUserID(c); ok {
			return "user:" + strconv.FormatUint(id, 10)
		}
		return c.ClientIP()
	})
}

// RateLimitWithKey token-bucket limiting with a caller-supplied key function
func RateLimitWithKey(rps float64, burst int, keyFunc func(c *gin.Context) string) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		key := keyFunc(c)

		mu.Lock()
		limiter, exists := limiters[key]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			log.WithFields(map[string]interface{}{
				"key":    key,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("Rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": "Too many requests",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
