package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// QuotaError signals provider-side throttling (rate limit or exhausted quota).
// It is the only provider failure that the pipeline retries.
type QuotaError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exceeded: status %d, body: %s", e.Provider, e.StatusCode, truncate(e.Body, 300))
}

// StatusError is any other non-2xx reply from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: status %d, body: %s", e.Provider, e.StatusCode, truncate(e.Body, 300))
}

// IsQuota reports whether err (or anything it wraps) is a QuotaError.
func IsQuota(err error) bool {
	var q *QuotaError
	return errors.As(err, &q)
}

var quotaMarkers = []string{"RESOURCE_EXHAUSTED", "quota", "rate limit", "Too Many Requests"}

// NewStatusError classifies a failed HTTP reply.
func NewStatusError(provider string, statusCode int, body []byte) error {
	text := string(body)
	if statusCode == http.StatusTooManyRequests || looksLikeQuota(text) {
		return &QuotaError{Provider: provider, StatusCode: statusCode, Body: text}
	}
	return &StatusError{Provider: provider, StatusCode: statusCode, Body: text}
}

func looksLikeQuota(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
