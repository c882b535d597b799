package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS middleware configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns the baseline CORS settings. AllowOrigins
// starts empty: cross-origin requests are rejected until the operator
// lists the POS frontends in config.toml or POS_HTTP_CORS_ALLOW_ORIGINS.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID", "X-Company-ID", "Accept", "Origin", "Cache-Control"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS handles cross-origin requests with the default configuration
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig handles cross-origin requests against an explicit
// origin whitelist. Preflight OPTIONS requests are always answered with
// 204 so they never fall through to the router as 404s.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	origins := newOriginSet(cfg.AllowOrigins)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if c.Request.Method == http.MethodOptions {
			if allowed, ok := origins.match(origin); ok {
				writeCORSHeaders(c, cfg, allowed)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if allowed, ok := origins.match(origin); ok {
			writeCORSHeaders(c, cfg, allowed)
		}
		c.Next()
	}
}

// originSet resolves a request Origin against the configured whitelist
type originSet struct {
	wildcard bool
	exact    map[string]struct{}
}

func newOriginSet(allowed []string) originSet {
	set := originSet{exact: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		if o == "*" {
			set.wildcard = true
			continue
		}
		set.exact[o] = struct{}{}
	}
	return set
}

// match returns the Access-Control-Allow-Origin value to emit and
// whether the origin is allowed at all
func (s originSet) match(origin string) (string, bool) {
	if s.wildcard {
		return "*", true
	}
	if origin == "" {
		return "", false
	}
	if _, ok := s.exact[origin]; ok {
		return origin, true
	}
	return "", false
}

func writeCORSHeaders(c *gin.Context, cfg CORSConfig, allowedOrigin string) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", allowedOrigin)
	// credentials with a wildcard origin is rejected by browsers
	if cfg.AllowCredentials && allowedOrigin != "*" {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
	if len(cfg.ExposeHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
	}
	if cfg.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
	}
}
