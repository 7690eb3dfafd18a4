package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"stopsearch-bknd/internal/models"
	"stopsearch-bknd/internal/policeapi"
	"stopsearch-bknd/internal/services"

	"go.uber.org/zap"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

const maxForceLength = 50

// ProxyHandler forwards requests to the police API with per-call timeouts
// and cacheable responses.
type ProxyHandler struct {
	client       *policeapi.Client
	discovery    *services.DateDiscoveryService
	force        string
	cacheControl string
	logr         *zap.Logger
}

func NewProxyHandler(
	client *policeapi.Client,
	discovery *services.DateDiscoveryService,
	force string,
	maxAge, stale time.Duration,
	logr *zap.Logger,
) *ProxyHandler {
	return &ProxyHandler{
		client:       client,
		discovery:    discovery,
		force:        force,
		cacheControl: fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", int(maxAge.Seconds()), int(stale.Seconds())),
		logr:         logr,
	}
}

// StopsForce handles GET /api/stops-force?date=YYYY-MM&force=<force>
func (h *ProxyHandler) StopsForce(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	force := q.Get("force")

	if date == "" || force == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "Missing required parameters",
			"required": []string{"date", "force"},
			"received": map[string]bool{"date": date != "", "force": force != ""},
		})
		return
	}
	if !monthPattern.MatchString(date) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid date format. Expected YYYY-MM format"})
		return
	}
	if len(force) > maxForceLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid force parameter"})
		return
	}

	body, err := h.client.StopsForceRaw(r.Context(), date, force)
	if err != nil {
		h.writeUpstreamError(w, err, "No data found for the specified date and force", "Failed to fetch data from Police API")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", h.cacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// AvailableDates handles GET /api/available-dates
func (h *ProxyHandler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.discovery.DiscoverAvailableMonths(r.Context(), h.force)
	if err != nil {
		if errors.Is(err, models.ErrNoDataAvailable) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": fmt.Sprintf("No data available for force %s", h.force),
			})
			return
		}
		h.writeUpstreamError(w, err, "No data found", "Failed to fetch available dates from Police API")
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	writeJSON(w, http.StatusOK, dates)
}

func (h *ProxyHandler) writeUpstreamError(w http.ResponseWriter, err error, notFoundMsg, fallbackMsg string) {
	var upErr *models.UpstreamError
	switch {
	case errors.Is(err, models.ErrUpstreamTimeout):
		writeJSON(w, http.StatusRequestTimeout, map[string]string{"error": "Request timeout. Please try again"})
	case errors.Is(err, models.ErrUpstreamRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded. Please try again later"})
	case errors.Is(err, models.ErrUpstreamNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": notFoundMsg})
	case errors.As(err, &upErr) && upErr.StatusCode >= 400:
		writeJSON(w, upErr.StatusCode, map[string]string{
			"error":   fmt.Sprintf("Police API error: %d", upErr.StatusCode),
			"details": upErr.Details,
		})
	default:
		h.logr.Error("error proxying request to police api", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallbackMsg})
	}
}
