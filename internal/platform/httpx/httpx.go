// Package httpx holds the retry policy for outbound API calls: which
// failures are worth another attempt and how long to wait before it.
package httpx

import (
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusCoder is implemented by errors that carry the HTTP status of the
// failed call.
type StatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableError reports whether a failed attempt may succeed on a
// later one: network timeouts, 408/429, and server-side 5xx. Client-side
// 4xx failures are permanent.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return retryableStatus(sc.HTTPStatusCode())
	}
	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code < 600
}

// RetryAfterDuration returns the wait before the next attempt, honoring
// the server's Retry-After seconds when present and capping at max.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	wait := fallback
	if resp != nil {
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	if max > 0 && wait > max {
		wait = max
	}
	return wait
}

// JitterSleep spreads a base wait by up to 20% either way so concurrent
// retries do not land on the API at the same instant.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := float64(base) * 0.2
	return base - time.Duration(spread) + time.Duration(rand.Float64()*2*spread)
}
