package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// Kind names the failure category assigned by Classify.
type Kind string

const (
	KindNone        Kind = "none"
	KindQuota       Kind = "quota"
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindPermanent   Kind = "permanent"
)

// Classification is the verdict for one error.
type Classification struct {
	Kind      Kind
	Transient bool
}

// StatusCoder is implemented by transport errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

var transientTokens = []struct {
	token string
	kind  Kind
}{
	{"quota", KindQuota},
	{"rate limit", KindQuota},
	{"ratelimit", KindQuota},
	{"429", KindQuota},
	{"too many requests", KindQuota},
	{"exhausted", KindQuota},
	{"timeout", KindTimeout},
	{"timed out", KindTimeout},
	{"deadline exceeded", KindTimeout},
}

// Classify maps err to exactly one of transient or permanent. Structured
// signals (HTTP status, context deadlines, net timeouts, sentinel markers) win
// over message text; the message is only consulted when none are present.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindNone}
	}
	if kind, ok := classifyStructured(err); ok {
		return verdict(kind)
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage applies the case-insensitive token fallback to a bare message.
func ClassifyMessage(message string) Classification {
	lower := strings.ToLower(message)
	for _, candidate := range transientTokens {
		if strings.Contains(lower, candidate.token) {
			return verdict(candidate.kind)
		}
	}
	return verdict(KindPermanent)
}

// IsQuota reports whether err classifies as a quota or rate-limit condition.
func IsQuota(err error) bool {
	return Classify(err).Kind == KindQuota
}

func verdict(kind Kind) Classification {
	switch kind {
	case KindQuota, KindTimeout, KindUnavailable:
		return Classification{Kind: kind, Transient: true}
	default:
		return Classification{Kind: KindPermanent}
	}
}

func classifyStructured(err error) (Kind, bool) {
	var coder StatusCoder
	if errors.As(err, &coder) {
		if kind, ok := kindForStatus(coder.StatusCode()); ok {
			return kind, true
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout, true
	case errors.Is(err, context.Canceled):
		return KindPermanent, true
	case errors.Is(err, ErrQuota):
		return KindQuota, true
	case errors.Is(err, ErrTimeout):
		return KindTimeout, true
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return KindPermanent, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout, true
	}
	if errors.Is(err, ErrTransient) {
		return KindUnavailable, true
	}
	return "", false
}

func kindForStatus(status int) (Kind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return KindQuota, true
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout, true
	case status >= 500 && status <= 599:
		return KindUnavailable, true
	case status >= 400 && status <= 499:
		return KindPermanent, true
	default:
		return "", false
	}
}
