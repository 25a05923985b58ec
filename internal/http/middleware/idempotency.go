package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey lets a client retry a transcript import safely.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderClientID scopes idempotency keys and rate limits to one client.
	HeaderClientID = "X-Client-ID"

	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var (
	idemKeyRE  = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	clientIDRE = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,64}$`)
)

// ClientID identifies the caller: a well-formed X-Client-ID header, else
// "ip:" plus the client address.
func ClientID(c *gin.Context) string {
	if h := strings.TrimSpace(c.GetHeader(HeaderClientID)); clientIDRE.MatchString(h) {
		return h
	}
	return "ip:" + c.ClientIP()
}

// GetIdempotencyKey returns the key validated by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the key was already recorded for this client.
func IsReplay(c *gin.Context) bool { return flag(c, ctxKeyIdemReplay) }

func flag(c *gin.Context, key string) bool {
	v, _ := c.Get(key)
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyValidator. MaxLen <= 0 means 200.
type IdempotencyOptions struct {
	MaxLen int
}

// IdempotencyLookup reports whether (clientID, key) maps to a live import.
type IdempotencyLookup func(ctx context.Context, clientID, key string) (bool, error)

// IdempotencyValidator checks the Idempotency-Key header of POST requests.
// A malformed key is rejected with 400. A known key marks the request as a
// replay, which also exempts it from rate limiting. Lookup failures are
// ignored; the handler still resolves the key itself.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !idemKeyRE.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if exists, err := lookup(c.Request.Context(), ClientID(c), key); err == nil && exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
