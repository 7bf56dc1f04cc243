package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit throttles mutating game actions per Telegram account. Tap
// storms from a single client are bounded here before they reach the
// ledger; unauthenticated requests fall back to a per-IP key.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	type entry struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	const (
		sweepInterval = 10 * time.Minute
		idleExpiry    = time.Hour
	)

	var (
		mu        sync.Mutex
		limiters  = make(map[string]*entry)
		lastSweep = time.Now()
	)

	return func(c *gin.Context) {
		key := c.ClientIP()
		if user, ok := CurrentUser(c); ok {
			key = "tg:" + strconv.FormatInt(user.ID, 10)
		}

		now := time.Now()

		mu.Lock()
		// Sweep idle limiters inline so the map does not grow unbounded;
		// no background goroutine to stop on shutdown.
		if now.Sub(lastSweep) > sweepInterval {
			for k, e := range limiters {
				if now.Sub(e.lastSeen) > idleExpiry {
					delete(limiters, k)
				}
			}
			lastSweep = now
		}

		e, ok := limiters[key]
		if !ok {
			e = &entry{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[key] = e
		}
		e.lastSeen = now
		mu.Unlock()

		if !e.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		c.Next()
	}
}
