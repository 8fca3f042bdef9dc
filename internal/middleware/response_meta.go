package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	responseStartKey = "response_start"
	cacheHitKey      = "cache_hit"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the payload was served from the candidate cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := storedMeta(c); meta != nil {
		meta[cacheHitKey] = hit
	}
}

// ResponseMeta returns a copy of the collected metadata with the elapsed
// processing time, or an empty map when WithResponseMeta is not installed.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range storedMeta(c) {
		out[k] = v
	}
	if c == nil {
		return out
	}
	if start, ok := c.Get(responseStartKey); ok {
		if ts, ok := start.(time.Time); ok {
			out["processing_time_ms"] = time.Since(ts).Milliseconds()
		}
	}
	return out
}

func storedMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}
