package policeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stopsearch-bknd/internal/metrics"
	"stopsearch-bknd/internal/models"

	"go.uber.org/zap"
)

const (
	datesPath      = "/crimes-street-dates"
	stopsForcePath = "/stops-force"

	defaultTimeout = 10 * time.Second
	maxErrorDetail = 2048
)

// Client talks to the public police data API. Every call is bounded by its
// own deadline; the underlying http.Client has no global timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logr       *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logr *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: timeout,
		logr:    logr,
	}
}

// CrimesStreetDates lists the months the API has data for, with the forces
// that published each dataset category.
func (c *Client) CrimesStreetDates(ctx context.Context) ([]models.DateAvailability, error) {
	body, err := c.get(ctx, "crimes-street-dates", datesPath, nil)
	if err != nil {
		return nil, err
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &models.UpstreamError{
			StatusCode: http.StatusOK,
			Details:    err.Error(),
			Err:        models.ErrMalformedPayload,
		}
	}

	out := make([]models.DateAvailability, 0, len(entries))
	for _, entry := range entries {
		var date string
		if err := json.Unmarshal(entry["date"], &date); err != nil || date == "" {
			continue
		}
		item := models.DateAvailability{Date: date, Categories: map[string][]string{}}
		for key, raw := range entry {
			if key == "date" {
				continue
			}
			var forces []string
			if err := json.Unmarshal(raw, &forces); err == nil {
				item.Categories[key] = forces
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// StopsForceRaw returns the undecoded stop-and-search payload for one month.
func (c *Client) StopsForceRaw(ctx context.Context, date, force string) ([]byte, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("force", force)
	return c.get(ctx, "stops-force", stopsForcePath, q)
}

// StopsForce returns the raw stop-and-search records for one month. Elements
// are left as decoded JSON values; numbers are json.Number.
func (c *Client) StopsForce(ctx context.Context, date, force string) ([]any, error) {
	body, err := c.StopsForceRaw(ctx, date, force)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &models.UpstreamError{
			StatusCode: http.StatusOK,
			Details:    err.Error(),
			Err:        models.ErrMalformedPayload,
		}
	}

	records, ok := payload.([]any)
	if !ok {
		return nil, &models.UpstreamError{
			StatusCode: http.StatusOK,
			Details:    fmt.Sprintf("expected array, got %T", payload),
			Err:        models.ErrMalformedPayload,
		}
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating police api request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		if isTimeout(err) {
			metrics.UpstreamRequests.WithLabelValues(endpoint, "timeout").Inc()
			c.logr.Warn("police api request timed out", zap.String("url", fullURL), zap.Duration("timeout", c.timeout))
			return nil, fmt.Errorf("%w: %s", models.ErrUpstreamTimeout, path)
		}
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("error making police api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			metrics.UpstreamRequests.WithLabelValues(endpoint, "timeout").Inc()
			return nil, fmt.Errorf("%w: %s", models.ErrUpstreamTimeout, path)
		}
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("error reading police api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues(endpoint, statusResult(resp.StatusCode)).Inc()
		c.logr.Warn("police api error",
			zap.String("url", fullURL),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), maxErrorDetail)))

		upErr := &models.UpstreamError{
			StatusCode: resp.StatusCode,
			Details:    truncate(string(body), maxErrorDetail),
		}
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			upErr.Err = models.ErrUpstreamRateLimited
		case http.StatusNotFound:
			upErr.Err = models.ErrUpstreamNotFound
		}
		return nil, upErr
	}

	metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusResult(code int) string {
	switch code {
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusNotFound:
		return "not_found"
	}
	return "http_error"
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
