package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/render"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"

	"github.com/JonMunkholm/dataprep/internal/logging"
)

// RateLimiter is a token bucket per client IP. Idle visitors are evicted
// after a few minutes so the map stays bounded.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors *ttlcache.Cache[string, *rate.Limiter]
}

// NewRateLimiter allows perMinute requests per IP with an equal burst.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: perMinute,
		visitors: ttlcache.New[string, *rate.Limiter](
			ttlcache.WithTTL[string, *rate.Limiter](3 * time.Minute),
		),
	}
}

// Start runs visitor eviction until Stop.
func (rl *RateLimiter) Start() { go rl.visitors.Start() }

// Stop ends visitor eviction.
func (rl *RateLimiter) Stop() { rl.visitors.Stop() }

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if item := rl.visitors.Get(ip); item != nil {
		return item.Value()
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.visitors.Set(ip, lim, ttlcache.DefaultTTL)
	return lim
}

// Allow consumes one token for ip.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiter(ip).Allow()
}

// Handler rejects requests over the limit with 429 and Retry-After.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		lim := rl.limiter(ip)
		res := lim.Reserve()
		if !res.OK() {
			rl.reject(w, r, ip, time.Minute)
			return
		}
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			rl.reject(w, r, ip, delay)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) reject(w http.ResponseWriter, r *http.Request, ip string, retry time.Duration) {
	logging.FromContext(r.Context()).Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, map[string]string{
		"error":   "rate limit exceeded",
		"message": "Too many requests",
		"action":  "Please wait a moment before trying again",
		"code":    "RATE001",
	})
}
