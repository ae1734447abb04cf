package logic

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argstats-api/internal/jobs"
	"argstats-api/internal/persistence/series"
	"argstats-api/internal/repo"
	"argstats-api/internal/types"
)

func TestCronResponseSuccess(t *testing.T) {
	r := &jobs.Report{
		Job:        "dollars",
		Series:     "dollars",
		DataSource: "dolarapi",
		StartedAt:  time.Date(2025, 7, 13, 12, 0, 0, 0, time.UTC),
		Processed:  10,
		Folded:     1,
		Write:      series.WriteResult{Inserted: 6, Updated: 2, Unchanged: 1},
	}

	resp, err := CronResponse(r)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "2025-07-13T12:00:00.000Z", resp.ExecutionTime)
	assert.Equal(t, "dolarapi", resp.DataSource)
	assert.Equal(t, 6, resp.NewRecords)
	assert.Equal(t, 2, resp.UpdatedRecords)
	assert.Equal(t, 2, resp.DuplicatesSkipped)
	assert.Equal(t, "dollars: 6 new, 2 updated, 2 duplicates skipped of 10 processed", resp.Summary)
	assert.IsType(t, jobs.Details{}, resp.Details)
}

func TestCronResponseFailure(t *testing.T) {
	r := &jobs.Report{
		Job:         "embi",
		StartedAt:   time.Date(2025, 7, 13, 12, 0, 0, 0, time.UTC),
		FailedStage: jobs.StagePersisting,
		Err:         errors.New("persist 3 records: connection reset"),
	}

	_, err := CronResponse(r)
	var failed *JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, types.CronFailureResponse{
		Success:       false,
		ExecutionTime: "2025-07-13T12:00:00.000Z",
		Error:         "persist 3 records: connection reset",
		Details:       "embi failed during PERSISTING: persist 3 records: connection reset",
	}, failed.Response)

	status, body := StatusOf(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, failed.Response, body)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   any
	}{
		{"bad request", badRequest("limit must be positive"), http.StatusBadRequest, types.ErrorResponse{Error: "limit must be positive"}},
		{"unknown series", repo.ErrUnknownSeries("bitcoin"), http.StatusNotFound, types.ErrorResponse{Error: `unknown series "bitcoin"`}},
		{"unknown job", ErrJobNotFound, http.StatusNotFound, types.ErrorResponse{Error: "job not found"}},
		{"internal", errors.New("pq: password authentication failed"), http.StatusInternalServerError, types.ErrorResponse{Error: "internal error"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := StatusOf(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, body)
		})
	}
}
