package logic

import (
	"errors"
	"fmt"
	"net/http"

	"argstats-api/internal/repo"
	"argstats-api/internal/types"
)

// ErrJobNotFound is returned for trigger paths naming no enabled job.
var ErrJobNotFound = errors.New("job not found")

// RequestError marks a caller mistake; it maps to 400.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string { return e.Msg }

func badRequest(format string, args ...any) error {
	return &RequestError{Msg: fmt.Sprintf(format, args...)}
}

// JobFailedError carries the structured body of a failed run.
type JobFailedError struct {
	Response types.CronFailureResponse
}

func (e *JobFailedError) Error() string { return e.Response.Error }

// StatusOf maps a logic error onto an HTTP status and a body safe to show.
// Internal errors never leak their text.
func StatusOf(err error) (int, any) {
	var (
		reqErr  *RequestError
		failed  *JobFailedError
		unknown repo.ErrUnknownSeries
	)
	switch {
	case errors.As(err, &failed):
		return http.StatusInternalServerError, failed.Response
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, types.ErrorResponse{Error: reqErr.Msg}
	case errors.As(err, &unknown):
		return http.StatusNotFound, types.ErrorResponse{Error: unknown.Error()}
	case errors.Is(err, ErrJobNotFound):
		return http.StatusNotFound, types.ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, types.ErrorResponse{Error: "internal error"}
	}
}
