package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RedactOptions configures AccessLog scrubbing.
//
// MaskHeaders are replaced with "[REDACTED]" on top of Authorization, Cookie
// and Set-Cookie. MaskQuery names query parameters whose values are dropped
// entirely; search terms are chat content and never reach the log.
type RedactOptions struct {
	MaskHeaders []string
	MaskQuery   []string
}

var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex ids are never taken for phone numbers.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redact scrubs emails and phone numbers. Chat and message ids stay intact;
// they are needed to correlate requests with archive logs.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func redactQuery(raw string, masked map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return "[UNPARSEABLE]"
	}
	for k := range vals {
		if _, ok := masked[strings.ToLower(k)]; ok {
			vals[k] = []string{"[REDACTED]"}
			continue
		}
		for i, v := range vals[k] {
			vals[k][i] = redact(v)
		}
	}
	return vals.Encode()
}

// AccessLog emits one structured line per request through base and attaches
// a request-scoped child logger for LoggerFrom. Bodies are never logged.
// Level follows the outcome: error for 5xx or gin errors, warn for 4xx.
func AccessLog(base zerolog.Logger, opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{"authorization": {}, "cookie": {}, "set-cookie": {}}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}
	maskQuery := make(map[string]struct{}, len(opts.MaskQuery))
	for _, q := range opts.MaskQuery {
		if q = strings.ToLower(strings.TrimSpace(q)); q != "" {
			maskQuery[q] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		scoped := base.With().
			Str("request_id", RequestIDFrom(c)).
			Str("client_id", ClientID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &scoped)

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0:
			ev = scoped.Error().Str("errors", c.Errors.String())
		case status >= 500:
			ev = scoped.Error()
		case status >= 400:
			ev = scoped.Warn()
		default:
			ev = scoped.Info()
		}
		if id := c.Param("id"); id != "" {
			ev = ev.Str("resource_id", id)
		}
		ev.Str("query", redactQuery(c.Request.URL.RawQuery, maskQuery)).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
