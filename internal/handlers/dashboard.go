package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"stopsearch-bknd/internal/models"
	"stopsearch-bknd/internal/services"
	"stopsearch-bknd/internal/utils"

	"go.uber.org/zap"
)

type DashboardHandler struct {
	service      *services.Dashboard
	discovery    *services.DateDiscoveryService
	force        string
	defaultLimit int
	logr         *zap.Logger
}

func NewDashboardHandler(
	svc *services.Dashboard,
	discovery *services.DateDiscoveryService,
	force string,
	defaultLimit int,
	logr *zap.Logger,
) *DashboardHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &DashboardHandler{
		service:      svc,
		discovery:    discovery,
		force:        force,
		defaultLimit: defaultLimit,
		logr:         logr,
	}
}

// filtersRequest is the wire form of models.FilterOptions; dates are days.
type filtersRequest struct {
	DateRange struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"dateRange"`
	Location   []string `json:"location"`
	SearchType []string `json:"searchType"`
}

type paginationRequest struct {
	CurrentPage  *int `json:"currentPage"`
	ItemsPerPage *int `json:"itemsPerPage"`
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.View())
}

// UpdateFilters handles PUT /api/v1/dashboard/filters
func (h *DashboardHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req filtersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logr.Warn("failed to decode filters", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start, err := parseDay(req.DateRange.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDay(req.DateRange.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := h.service.SetFilters(models.FilterOptions{
		DateRange:  models.DateRange{Start: start, End: end},
		Location:   req.Location,
		SearchType: req.SearchType,
	})

	h.logr.Debug("filters updated", zap.Int("total_items", state.TotalItems))
	writeJSON(w, http.StatusOK, h.service.View())
}

// UpdatePagination handles PUT /api/v1/dashboard/pagination
func (h *DashboardHandler) UpdatePagination(w http.ResponseWriter, r *http.Request) {
	var req paginationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// a page size change resets to page 1, so apply it first
	if req.ItemsPerPage != nil {
		if _, err := h.service.SetItemsPerPage(*req.ItemsPerPage); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
	}
	if req.CurrentPage != nil {
		if _, err := h.service.SetPage(*req.CurrentPage); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, h.service.View())
}

// Refresh handles POST /api/v1/dashboard/refresh. With ?wait=false the refresh
// runs in the background and the call returns 202 immediately.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	// the collection outlives the request that triggered it
	ctx := context.WithoutCancel(r.Context())

	if wait := r.URL.Query().Get("wait"); wait != "" && !parseBool(wait) {
		if err := h.service.StartRefresh(ctx); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"refreshing": true})
		return
	}

	summary, err := h.service.Refresh(ctx)
	if err != nil {
		h.logr.Error("refresh failed", zap.Error(err))
		status := statusForError(err)
		writeJSON(w, status, map[string]any{
			"error":     err.Error(),
			"retryable": status != http.StatusNotFound,
			"summary":   summary,
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// QueryStopSearches handles GET /api/v1/stop-searches
func (h *DashboardHandler) QueryStopSearches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := parseDay(q.Get("dateFrom"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dateFrom")
		return
	}
	end, err := parseDay(q.Get("dateTo"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dateTo")
		return
	}
	page, err := parsePositiveInt(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	limit, err := parsePositiveInt(q.Get("limit"), h.defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	filters := models.FilterOptions{
		DateRange:  models.DateRange{Start: start, End: end},
		SearchType: utils.ParseQueryList(q, "searchType"),
	}
	if loc := q.Get("location"); loc != "" {
		filters.Location = []string{loc}
	}

	view, err := h.service.Query(filters, page, limit)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// GetAvailableDates handles GET /api/v1/available-dates
func (h *DashboardHandler) GetAvailableDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.discovery.DiscoverAvailableMonths(r.Context(), h.force)
	if err != nil {
		status := statusForError(err)
		if !errors.Is(err, models.ErrNoDataAvailable) {
			h.logr.Error("failed to discover available dates", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dates)
}
