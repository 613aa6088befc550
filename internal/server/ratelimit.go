package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/pdfrag-go/internal/logging"
)

// Per-IP token bucket defaults. Every MCP message is its own POST, so an
// assistant issuing a burst of tool calls needs some headroom.
const (
	defaultRateLimit = 10
	defaultRateBurst = 20
)

// Idle buckets are dropped after limiterTTL; the sweep runs every
// evictInterval.
const (
	limiterTTL    = 5 * time.Minute
	evictInterval = time.Minute
)

// bucket is one client's token bucket and its last use.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles /mcp per client IP.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	// rps and burst parameterise every new bucket.
	rps   rate.Limit
	burst int

	// now is time.Now outside tests.
	now func() time.Time
	log *slog.Logger
}

// newRateLimiter constructs a rateLimiter and starts its eviction sweep.
// The sweep stops when the returned func is called.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		log:     log,
	}

	stopCh := make(chan struct{})
	go rl.evictLoop(stopCh)

	var once sync.Once
	return rl, func() { once.Do(func() { close(stopCh) }) }
}

// reserve takes a token for ip. It returns zero when the request may pass,
// otherwise how long the client should wait. A denied request gives its
// token back.
func (rl *rateLimiter) reserve(ip string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[ip] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Second
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
	}
	return delay
}

func (rl *rateLimiter) evictLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if n := rl.evict(); n > 0 {
				rl.log.Debug("rate limiter: evicted idle clients", slog.Int("count", n))
			}
		}
	}
}

// evict drops buckets idle for longer than limiterTTL and returns how many
// were removed.
func (rl *rateLimiter) evict() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-limiterTTL)
	n := 0
	for ip, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, ip)
			n++
		}
	}
	return n
}

// size reports the number of tracked clients.
func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// middleware rejects over-limit requests with 429 and a Retry-After header
// in whole seconds.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if wait := rl.reserve(ip); wait > 0 {
			retry := int(math.Ceil(wait.Seconds()))
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
				slog.String("session", r.Header.Get(mcpSessionHeader)),
				slog.Int("retry_after_s", retry),
			)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the remote IP without its port. X-Forwarded-For is not
// trusted; put the limiter behind the proxy instead.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
