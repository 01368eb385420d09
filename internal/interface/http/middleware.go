package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/note-it-down/internal/infra/config"
)

// errorBody is the wire shape of every failed response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// errorHandlingMiddleware renders the last error a handler attached, unless it already wrote a body.
func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		level := slog.LevelWarn
		if httpErr.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", httpErr.Code,
			"status", httpErr.Status,
			"error", httpErr.Err,
		)

		message := httpErr.Message
		if message == "" {
			message = httpErr.Error()
		}
		c.JSON(httpErr.Status, errorBody{Error: errorDetail{Code: httpErr.Code, Message: message}})
	}
}

// rateLimitMiddleware limits each client IP. Status polling has its own budget so
// a recording in progress never locks the caller out of stop or abort.
func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	exempt := pathSet(cfg.Exempt)
	polled := pathSet(cfg.Poll.Paths)
	general := newTokenLimiter(cfg.RequestsPerMinute, cfg.Burst)
	var polling *tokenLimiter
	if cfg.Poll.RequestsPerMinute > 0 {
		polling = newTokenLimiter(cfg.Poll.RequestsPerMinute, cfg.Poll.Burst)
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := exempt[path]; ok {
			c.Next()
			return
		}
		limiter, budget := general, "api"
		if _, ok := polled[path]; ok {
			if polling == nil {
				c.Next()
				return
			}
			limiter, budget = polling, "poll"
		}

		ip := c.ClientIP()
		allowed, wait := limiter.take(ip)
		if allowed {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		logger.Warn("rate limit exceeded", "ip", ip, "path", path, "budget", budget)
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

type bucket struct {
	tokens  float64
	updated time.Time
}

// tokenLimiter keeps one token bucket per key. Idle buckets are swept once per idle period.
type tokenLimiter struct {
	mu        sync.Mutex
	perSecond float64
	burst     float64
	idle      time.Duration
	now       func() time.Time
	buckets   map[string]*bucket
	swept     time.Time
}

func newTokenLimiter(perMinute, burst int) *tokenLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &tokenLimiter{
		perSecond: float64(perMinute) / 60,
		burst:     float64(burst),
		idle:      5 * time.Minute,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
	}
}

// take spends one token for key. When the bucket is empty it reports how long until the next token.
func (l *tokenLimiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) > l.idle {
		for k, b := range l.buckets {
			if now.Sub(b.updated) > l.idle {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, updated: now}
		l.buckets[key] = b
	} else if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.burst, b.tokens+elapsed*l.perSecond)
		b.updated = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	missing := (1 - b.tokens) / l.perSecond
	return false, time.Duration(missing * float64(time.Second))
}
