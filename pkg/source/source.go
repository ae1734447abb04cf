package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"argstats-api/pkg/reconcile"
)

// ErrNoRecords signals that the upstream answered but carried no rows.
var ErrNoRecords = errors.New("source: no records")

// Fetcher pulls the raw rows of one upstream dataset.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]reconcile.Raw, error)
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
	// RetryAfter is the wait the upstream asked for, zero when it sent none.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("source: %s returned status %d: %s", e.URL, e.StatusCode, body)
}
