package logging

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsRateLimit reports whether err looks like an upstream 429.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429")
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Reason condenses an upstream error into a short label for log fields.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case IsTimeout(err):
		return "timeout"
	case IsRateLimit(err):
		return "rate_limit"
	}
	return "error"
}
