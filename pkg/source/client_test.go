package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("fecha,valor\n", 4)))
	}))
	defer srv.Close()

	g := NewHTTPGetter(&FetcherConfig{URL: srv.URL})
	g.maxBody = 16
	_, err := g.Get(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrBodyTooLarge)

	g.maxBody = 48
	body, err := g.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, 48)
}

func TestGetCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTPGetter(&FetcherConfig{URL: srv.URL}).Get(context.Background(), srv.URL)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, 7*time.Second, statusErr.RetryAfter)
}
