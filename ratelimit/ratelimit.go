package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/respond"
	"golang.org/x/time/rate"
)

// Callers that have not been seen for this long are forgotten.
const idleTimeout = 10 * time.Minute

// New limits each caller to perMinute requests, allowing bursts of up to
// burst requests. Authenticated callers are keyed by user name, anonymous
// callers by IP address. A perMinute of zero disables limiting.
func New(log *slog.Logger, perMinute, burst int, next http.Handler) *Limiter {
	return &Limiter{
		log:      log,
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    max(burst, 1),
		disabled: perMinute <= 0,
		callers:  make(map[string]*caller),
		next:     next,
	}
}

type Limiter struct {
	log      *slog.Logger
	limit    rate.Limit
	burst    int
	disabled bool
	next     http.Handler

	mu        sync.Mutex
	callers   map[string]*caller
	lastSweep time.Time
}

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > idleTimeout {
		for k, c := range l.callers {
			if now.Sub(c.lastSeen) > idleTimeout {
				delete(l.callers, k)
			}
		}
		l.lastSweep = now
	}
	c, ok := l.callers[key]
	if !ok {
		c = &caller{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.callers[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func key(r *http.Request) string {
	if user, ok := auth.GetUser(r); ok && user != auth.Anonymous {
		return "user:" + user
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (l *Limiter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if l.disabled {
		l.next.ServeHTTP(w, r)
		return
	}
	now := time.Now()
	k := key(r)
	res := l.get(k, now).ReserveN(now, 1)
	if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
		res.CancelAt(now)
		l.log.Warn("rate limit exceeded", slog.String("caller", k), slog.Duration("retryAfter", delay))
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(delay.Seconds())))))
		respond.WithError(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	l.next.ServeHTTP(w, r)
}
