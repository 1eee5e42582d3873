package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"staffledger/internal/transport/http/api"
)

// maxTrackedKeys bounds the limiter table; idle keys are swept past it.
const maxTrackedKeys = 10000

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*keyedLimiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(kl *keyedLimiter) {
		if fn != nil {
			kl.keyFn = fn
		}
	}
}

type trackedLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// keyedLimiter is a token bucket per caller key. Each bucket holds limit
// tokens and refills one every window/limit.
type keyedLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	every  rate.Limit
	keyFn  RateLimitKeyFunc
	keys   map[string]*trackedLimiter
}

func newKeyedLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *keyedLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	kl := &keyedLimiter{limit: limit, window: window, keyFn: keyFn, keys: map[string]*trackedLimiter{}}
	if limit > 0 && window > 0 {
		kl.every = rate.Every(window / time.Duration(limit))
	}
	return kl
}

func (kl *keyedLimiter) get(key string, now time.Time) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	if len(kl.keys) >= maxTrackedKeys {
		for k, t := range kl.keys {
			if now.Sub(t.seen) > kl.window {
				delete(kl.keys, k)
			}
		}
	}
	t, ok := kl.keys[key]
	if !ok {
		t = &trackedLimiter{limiter: rate.NewLimiter(kl.every, kl.limit)}
		kl.keys[key] = t
	}
	t.seen = now
	return t.limiter
}

func (kl *keyedLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if kl.limit <= 0 || kl.every == 0 {
		return true
	}
	key := kl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	now := time.Now()
	limiter := kl.get(key, now)

	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
	}
	tokens := limiter.TokensAt(now)
	refill := time.Duration((float64(kl.limit) - tokens) * float64(time.Second) / float64(kl.every))

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(kl.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(int(math.Floor(tokens)), 0)))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(refill)))

	if delay > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(max(ceilSeconds(delay), 1)))
		slog.Warn("rate limit exceeded",
			"key", key,
			"path", r.URL.Path,
			"method", r.Method,
			"limit", kl.limit,
			"windowSec", int(kl.window.Seconds()),
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// RateLimit allows limit requests per window for each caller, keyed by user
// when authenticated and by client IP otherwise.
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	kl := newKeyedLimiter(limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(kl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !kl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit adds tighter limits on login, MFA, and writes
// that move money or change the roster.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	authLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	authByIP := newKeyedLimiter(authLimit, window, clientIPKey)
	authByEmail := newKeyedLimiter(authLimit, window, AuthEmailOrIPKey("email"))
	byActor := newKeyedLimiter(mutationLimit, window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !authByIP.enforce(w, r) || !authByEmail.enforce(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !byActor.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "email"
	}
	return func(r *http.Request) string {
		email := extractJSONField(r, field)
		if email == "" {
			return clientIPKey(r)
		}
		return "email:" + strings.ToLower(email)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok {
		return "user:" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

// extractJSONField peeks at a string field of a JSON body and restores the
// body for the next handler.
func extractJSONField(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	var payload map[string]any
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type sensitiveScope int

const (
	sensitiveScopeNone sensitiveScope = iota
	sensitiveScopeAuth
	sensitiveScopeActor
)

var authPaths = map[string]bool{
	"/auth/login":      true,
	"/auth/mfa/setup":  true,
	"/auth/mfa/enable": true,
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	if authPaths[path] {
		return sensitiveScopeAuth
	}
	switch {
	case path == "/attendance", path == "/reports/refresh", path == "/employees":
		return sensitiveScopeActor
	case strings.HasPrefix(path, "/employees/"):
		if r.Method == http.MethodDelete || strings.HasSuffix(path, "/payments") || strings.HasSuffix(path, "/advances") {
			return sensitiveScopeActor
		}
	}
	return sensitiveScopeNone
}
