package source

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 3 * time.Second
	defaultBackoffFactor  = 2.0
)

// RetryConfig bounds how hard a fetch insists on a flaky upstream.
// MaxRetries counts attempts after the first one.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.Multiplier <= 1 {
		c.Multiplier = defaultBackoffFactor
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// retrier re-issues a GET while the upstream fails transiently: rate limits,
// gateway errors and transport failures. Statistics publishers throttle
// bursts, so a Retry-After answer is honoured up to MaxBackoff.
type retrier struct {
	cfg RetryConfig
}

func newRetrier(cfg RetryConfig) *retrier {
	return &retrier{cfg: cfg.withDefaults()}
}

// Do runs get until it succeeds, fails permanently or the budget is spent.
// The last upstream error is returned as is.
func (r *retrier) Do(ctx context.Context, get func() error) error {
	backoff := r.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		err := get()
		if err == nil || attempt >= r.cfg.MaxRetries || !transient(err) {
			return err
		}

		timer := time.NewTimer(r.delay(err, backoff))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		backoff = min(r.cfg.MaxBackoff, time.Duration(float64(backoff)*r.cfg.Multiplier))
	}
}

func (r *retrier) delay(err error, backoff time.Duration) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return min(statusErr.RetryAfter, r.cfg.MaxBackoff)
	}
	return backoff
}

// transient reports whether another attempt could succeed.
func transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// parseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. Unparseable or past values yield zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
