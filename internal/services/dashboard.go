package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"stopsearch-bknd/internal/metrics"
	"stopsearch-bknd/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// Dashboard owns the in-memory canonical collection and the current view
// state (filters and pagination). The collection is replaced wholesale by
// Refresh; at most one refresh runs at a time and concurrent callers share it.
type Dashboard struct {
	discovery *DateDiscoveryService
	collector *CollectorService
	force     string
	window    int
	logr      *zap.Logger

	group   singleflight.Group
	running atomic.Bool
	now     func() time.Time

	mu          sync.RWMutex
	records     []models.IncidentRecord
	filtered    []models.IncidentRecord
	filters     models.FilterOptions
	pagination  models.PaginationState
	lastUpdated *time.Time
	lastError   string
	months      []models.MonthStatus
}

func NewDashboard(
	discovery *DateDiscoveryService,
	collector *CollectorService,
	force string,
	window, itemsPerPage int,
	logr *zap.Logger,
) *Dashboard {
	if window <= 0 {
		window = DefaultMonthWindow
	}
	if itemsPerPage <= 0 {
		itemsPerPage = 20
	}
	return &Dashboard{
		discovery: discovery,
		collector: collector,
		force:     force,
		window:    window,
		logr:      logr,
		now:       time.Now,
		records:   []models.IncidentRecord{},
		filtered:  []models.IncidentRecord{},
		pagination: models.PaginationState{
			CurrentPage:  1,
			ItemsPerPage: itemsPerPage,
		},
	}
}

// Refresh rediscovers the available months and recollects the most recent
// window. On failure the previous collection is kept and the error recorded.
func (d *Dashboard) Refresh(ctx context.Context) (*models.RefreshSummary, error) {
	v, err, shared := d.group.Do(refreshKey, func() (any, error) {
		return d.refresh(ctx)
	})
	if shared {
		d.logr.Debug("joined in-flight refresh")
	}
	summary, _ := v.(*models.RefreshSummary)
	return summary, err
}

// StartRefresh runs Refresh in the background. It refuses with
// ErrRefreshInProgress when a refresh is already running.
func (d *Dashboard) StartRefresh(ctx context.Context) error {
	if d.running.Load() {
		return models.ErrRefreshInProgress
	}
	go func() {
		if _, err := d.Refresh(ctx); err != nil {
			d.logr.Error("background refresh failed", zap.Error(err))
		}
	}()
	return nil
}

// Refreshing reports whether a refresh is in flight.
func (d *Dashboard) Refreshing() bool {
	return d.running.Load()
}

func (d *Dashboard) refresh(ctx context.Context) (*models.RefreshSummary, error) {
	d.running.Store(true)
	defer d.running.Store(false)

	summary := &models.RefreshSummary{ID: uuid.NewString(), StartedAt: d.now()}
	logr := d.logr.With(zap.String("refresh_id", summary.ID))
	logr.Info("refresh started", zap.String("force", d.force), zap.Int("window", d.window))

	fail := func(err error) (*models.RefreshSummary, error) {
		summary.CompletedAt = d.now()
		summary.Error = err.Error()
		metrics.RefreshDuration.WithLabelValues("error").Observe(summary.CompletedAt.Sub(summary.StartedAt).Seconds())

		d.mu.Lock()
		d.lastError = err.Error()
		d.mu.Unlock()

		logr.Error("refresh failed", zap.Error(err))
		return summary, err
	}

	dates, err := d.discovery.DiscoverAvailableMonths(ctx, d.force)
	if err != nil {
		return fail(err)
	}

	result, err := d.collector.Collect(ctx, dates.Window(d.window))
	if err != nil {
		return fail(fmt.Errorf("collecting stop and search data: %w", err))
	}

	summary.CompletedAt = d.now()
	summary.Months = result.Months
	summary.Records = len(result.Records)
	metrics.RefreshDuration.WithLabelValues("ok").Observe(summary.CompletedAt.Sub(summary.StartedAt).Seconds())
	metrics.CollectionSize.Set(float64(len(result.Records)))

	d.mu.Lock()
	d.records = result.Records
	d.months = result.Months
	d.lastError = ""
	completed := summary.CompletedAt
	d.lastUpdated = &completed
	d.onViewInputsChanged()
	d.mu.Unlock()

	logr.Info("refresh completed",
		zap.Int("records", summary.Records),
		zap.Int("months", len(summary.Months)),
		zap.Duration("took", summary.CompletedAt.Sub(summary.StartedAt)))

	return summary, nil
}

// onViewInputsChanged is the single transition applied whenever the collection
// or the filters change: recompute the filtered set and return to page 1.
// Callers hold d.mu.
func (d *Dashboard) onViewInputsChanged() {
	d.filtered = FilterRecords(d.records, d.filters)
	d.pagination.CurrentPage = 1
	d.pagination.TotalItems = len(d.filtered)
}

// SetFilters replaces the current filter criteria.
func (d *Dashboard) SetFilters(filters models.FilterOptions) models.PaginationState {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.filters = filters
	d.onViewInputsChanged()
	return d.pagination
}

// SetPage moves to page. Pages past the end are allowed and render empty.
func (d *Dashboard) SetPage(page int) (models.PaginationState, error) {
	if page < 1 {
		return models.PaginationState{}, models.ErrInvalidPage
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pagination.CurrentPage = page
	return d.pagination, nil
}

// SetItemsPerPage changes the page size and returns to page 1.
func (d *Dashboard) SetItemsPerPage(n int) (models.PaginationState, error) {
	if n <= 0 {
		return models.PaginationState{}, models.ErrInvalidPageSize
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pagination.ItemsPerPage = n
	d.pagination.CurrentPage = 1
	return d.pagination, nil
}

// View returns a snapshot of the current page, charts and status.
func (d *Dashboard) View() *models.DashboardView {
	d.mu.RLock()
	defer d.mu.RUnlock()

	page := PaginateRecords(d.filtered, d.pagination.CurrentPage, d.pagination.ItemsPerPage)

	view := &models.DashboardView{
		Records:     append([]models.IncidentRecord(nil), page...),
		Pagination:  d.pagination,
		TotalPages:  d.pagination.TotalPages(),
		Filters:     d.filters,
		Charts:      d.charts(d.filtered),
		SearchTypes: SearchTypeValues(d.records),
		Loading:     d.running.Load(),
		Error:       d.lastError,
		Months:      append([]models.MonthStatus(nil), d.months...),
	}
	if d.lastUpdated != nil {
		t := *d.lastUpdated
		view.LastUpdated = &t
	}
	return view
}

// Query filters and paginates the current collection without touching the
// shared view state.
func (d *Dashboard) Query(filters models.FilterOptions, page, itemsPerPage int) (*models.DashboardView, error) {
	if page < 1 {
		return nil, models.ErrInvalidPage
	}
	if itemsPerPage <= 0 {
		return nil, models.ErrInvalidPageSize
	}

	d.mu.RLock()
	records := d.records
	lastUpdated := d.lastUpdated
	lastError := d.lastError
	d.mu.RUnlock()

	// records is replaced, never mutated, so it is safe to read unlocked
	filtered := FilterRecords(records, filters)
	pagination := models.PaginationState{
		CurrentPage:  page,
		ItemsPerPage: itemsPerPage,
		TotalItems:   len(filtered),
	}

	return &models.DashboardView{
		Records:     PaginateRecords(filtered, page, itemsPerPage),
		Pagination:  pagination,
		TotalPages:  pagination.TotalPages(),
		Filters:     filters,
		Charts:      d.charts(filtered),
		SearchTypes: SearchTypeValues(records),
		LastUpdated: lastUpdated,
		Loading:     d.running.Load(),
		Error:       lastError,
	}, nil
}

func (d *Dashboard) charts(records []models.IncidentRecord) models.Charts {
	return models.Charts{
		Outcome: OutcomeChartData(records),
		Trend:   MonthlyTrendChartData(records),
	}
}
