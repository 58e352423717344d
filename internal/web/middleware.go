package web

import (
	"bytes"
	"crypto/subtle"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// basicAuth wraps all handlers except /health with HTTP Basic Auth.
func basicAuth(next http.Handler, username, password string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="fbtimeline", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// limiterIdle is how long a client IP keeps its bucket without requests.
const limiterIdle = 10 * time.Minute

// ipRateLimiter stores a token bucket per client IP. Buckets of idle
// clients expire.
type ipRateLimiter struct {
	mu  sync.Mutex
	ips *cache.Cache
	r   rate.Limit
	b   int
}

func newIPRateLimiter(r rate.Limit, b int, idle time.Duration) *ipRateLimiter {
	if idle <= 0 {
		idle = limiterIdle
	}
	return &ipRateLimiter{ips: cache.New(idle, idle), r: r, b: b}
}

func (i *ipRateLimiter) limiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	l, ok := i.ips.Get(ip)
	if !ok {
		l = rate.NewLimiter(i.r, i.b)
	}
	// Reset the expiry on every request.
	i.ips.SetDefault(ip, l)
	return l.(*rate.Limiter)
}

// rateLimit answers 429 once a client IP exhausts its bucket.
func rateLimit(next http.Handler, l *ipRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiter(clientIP(r)).Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

// recorder tees the response body so it can be cached.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// cacheResponses serves repeated GET requests from store, keyed by the
// request URI. Only successful responses are cached.
func cacheResponses(next http.Handler, store *cache.Cache, ttl time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := r.RequestURI
		if v, found := store.Get(key); found {
			cached := v.(cachedResponse)
			for k, vs := range cached.headers {
				w.Header()[k] = vs
			}
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(cached.status)
			_, _ = w.Write(cached.body)
			return
		}

		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status >= 200 && rec.status < 300 {
			store.Set(key, cachedResponse{
				status:  rec.status,
				headers: w.Header().Clone(),
				body:    bytes.Clone(rec.body.Bytes()),
			}, ttl)
		}
	})
}
