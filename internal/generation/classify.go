package generation

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ClassifyTransport recognizes failures that look the same for every vendor:
// context expiry and transport-level network errors. The second result is
// false when err carries no such signal.
func ClassifyTransport(err error) (ErrorKind, bool) {
	if err == nil {
		return "", false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorKindTimeout, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout, true
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return ErrorKindNetwork, true
	}

	return "", false
}

// ClassifyStatus maps an HTTP status code to an ErrorKind. quota reports
// whether the vendor signalled a billing or quota exhaustion rather than a
// short-term rate limit.
func ClassifyStatus(status int, quota bool) ErrorKind {
	switch {
	case status == 429 && quota:
		return ErrorKindQuotaExceeded
	case status == 429:
		return ErrorKindRateLimit
	case status == 401 || status == 403:
		return ErrorKindAuthentication
	case status == 402:
		return ErrorKindQuotaExceeded
	case status == 408 || status == 504:
		return ErrorKindTimeout
	case status == 400 || status == 404 || status == 413 || status == 422:
		return ErrorKindInvalidRequest
	case status >= 500:
		return ErrorKindNetwork
	default:
		return ErrorKindUnknown
	}
}

// ClassifyMessage is the last-resort heuristic over an error's text.
func ClassifyMessage(msg string) ErrorKind {
	m := strings.ToLower(msg)
	switch {
	case containsAny(m, "quota", "billing", "credit balance", "insufficient_quota"):
		return ErrorKindQuotaExceeded
	case containsAny(m, "rate limit", "rate_limit", "too many requests", "resource_exhausted"):
		return ErrorKindRateLimit
	case containsAny(m, "api key", "api_key", "unauthorized", "unauthenticated", "permission denied", "authentication"):
		return ErrorKindAuthentication
	case containsAny(m, "timeout", "timed out", "deadline exceeded"):
		return ErrorKindTimeout
	case containsAny(m, "connection refused", "connection reset", "no such host", "network", "unavailable", "overloaded", "eof"):
		return ErrorKindNetwork
	case containsAny(m, "invalid", "malformed", "bad request"):
		return ErrorKindInvalidRequest
	default:
		return ErrorKindUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
