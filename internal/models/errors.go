package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoDataAvailable     = errors.New("no data available")
	ErrNoMonths            = errors.New("no months to collect")
	ErrUpstreamRateLimited = errors.New("rate limit exceeded, please try again later")
	ErrUpstreamTimeout     = errors.New("upstream request timed out")
	ErrUpstreamNotFound    = errors.New("no upstream data for the request")
	ErrMalformedPayload    = errors.New("malformed upstream payload")
	ErrRefreshInProgress   = errors.New("refresh already in progress")
	ErrInvalidPage         = errors.New("page must be at least 1")
	ErrInvalidPageSize     = errors.New("items per page must be positive")
)

// UpstreamError is a non-2xx or undecodable upstream response.
type UpstreamError struct {
	StatusCode int
	Details    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("police api error: %d", e.StatusCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }
