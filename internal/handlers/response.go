package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stopsearch-bknd/internal/models"
)

const dayLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error":     msg,
		"retryable": status == http.StatusTooManyRequests || status >= http.StatusInternalServerError || status == http.StatusRequestTimeout,
	})
}

// statusForError maps the error taxonomy onto HTTP statuses for the /api/v1 routes.
func statusForError(err error) int {
	var upErr *models.UpstreamError
	switch {
	case errors.Is(err, models.ErrInvalidPage), errors.Is(err, models.ErrInvalidPageSize):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNoDataAvailable), errors.Is(err, models.ErrNoMonths):
		return http.StatusNotFound
	case errors.Is(err, models.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrUpstreamRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &upErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp; "" is no bound.
func parseDay(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dayLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}

func parsePositiveInt(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid value %q, expected a positive integer", s)
	}
	return n, nil
}

func parseBool(input string) bool {
	input = strings.ToLower(strings.TrimSpace(input))
	return input == "1" || input == "true"
}
