package services

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusError is returned by provider transports for non-2xx responses.
type StatusError struct {
	Op         string
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 240 {
		body = body[:240] + "..."
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.Code, body)
}

// StatusCode satisfies StatusCoder.
func (e *StatusError) StatusCode() int { return e.Code }

// RetryAfterDelay exposes the provider wait hint to backoff loops.
func (e *StatusError) RetryAfterDelay() time.Duration { return e.RetryAfter }

// NewStatusError builds a StatusError from an HTTP response and its body.
func NewStatusError(op string, resp *http.Response, body []byte) *StatusError {
	retryAfter, _ := ParseRetryAfter(resp.Header.Get("Retry-After"))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: string(body), RetryAfter: retryAfter}
}

// ParseRetryAfter decodes a Retry-After header in either seconds or HTTP-date form.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
