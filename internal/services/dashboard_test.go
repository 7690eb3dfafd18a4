package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stopsearch-bknd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDashboard(dates DateSource, stops StopSearchSource, window, perPage int) *Dashboard {
	logr := zap.NewNop()
	return NewDashboard(
		NewDateDiscoveryService(dates, "stop-and-search", logr),
		NewCollectorService(stops, "metropolitan", 0, logr),
		"metropolitan",
		window,
		perPage,
		logr,
	)
}

func monthOfStops(month string, n int, searchType string) monthResponse {
	var recs []any
	for i := 0; i < n; i++ {
		recs = append(recs, map[string]any{
			"datetime": fmt.Sprintf("%s-%02dT10:00:00+00:00", month, i%28+1),
			"outcome":  "Arrest",
			"type":     searchType,
		})
	}
	return monthResponse{records: recs}
}

func TestDashboard_Refresh(t *testing.T) {
	dates := &fakeDateSource{entries: []models.DateAvailability{
		availability("2024-01", "metropolitan"),
		availability("2024-02", "metropolitan"),
		availability("2024-03", "metropolitan"),
	}}
	stops := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-03": monthOfStops("2024-03", 15, "Person search"),
		"2024-02": monthOfStops("2024-02", 10, "Vehicle search"),
		"2024-01": monthOfStops("2024-01", 99, "Person search"),
	}}
	d := newTestDashboard(dates, stops, 2, 10)

	summary, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, 25, summary.Records)
	assert.Equal(t, []string{"2024-03", "2024-02"}, stops.calls)

	view := d.View()
	assert.Len(t, view.Records, 10)
	assert.Equal(t, models.PaginationState{CurrentPage: 1, ItemsPerPage: 10, TotalItems: 25}, view.Pagination)
	assert.Equal(t, 3, view.TotalPages)
	assert.Equal(t, []string{"Person search", "Vehicle search"}, view.SearchTypes)
	assert.Equal(t, []string{"Feb 2024", "Mar 2024"}, view.Charts.Trend.Labels)
	assert.Equal(t, []int{10, 15}, view.Charts.Trend.Datasets[0].Data)
	assert.NotNil(t, view.LastUpdated)
	assert.Empty(t, view.Error)
	assert.False(t, view.Loading)
	assert.Len(t, view.Months, 2)
}

func TestDashboard_PageResetTransitions(t *testing.T) {
	dates := &fakeDateSource{entries: []models.DateAvailability{availability("2024-03", "metropolitan")}}
	stops := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-03": monthOfStops("2024-03", 50, "Person search"),
	}}
	d := newTestDashboard(dates, stops, 12, 20)

	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	state, err := d.SetPage(3)
	require.NoError(t, err)
	assert.Equal(t, 3, state.CurrentPage)
	assert.Len(t, d.View().Records, 10)

	// filters changed
	state = d.SetFilters(models.FilterOptions{SearchType: []string{"Vehicle search"}})
	assert.Equal(t, 1, state.CurrentPage)
	assert.Equal(t, 0, state.TotalItems)
	assert.Empty(t, d.View().Records)

	d.SetFilters(models.FilterOptions{})
	_, err = d.SetPage(2)
	require.NoError(t, err)

	// collection changed
	_, err = d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, d.View().Pagination.CurrentPage)
	assert.Equal(t, 50, d.View().Pagination.TotalItems)

	state, err = d.SetItemsPerPage(25)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentPage)
	assert.Equal(t, 2, d.View().TotalPages)

	// past the last page renders empty
	_, err = d.SetPage(9)
	require.NoError(t, err)
	assert.Empty(t, d.View().Records)

	_, err = d.SetPage(0)
	assert.ErrorIs(t, err, models.ErrInvalidPage)
	_, err = d.SetItemsPerPage(0)
	assert.ErrorIs(t, err, models.ErrInvalidPageSize)
}

func TestDashboard_DiscoveryFailureKeepsCollection(t *testing.T) {
	dates := &fakeDateSource{entries: []models.DateAvailability{availability("2024-03", "metropolitan")}}
	stops := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-03": monthOfStops("2024-03", 5, "Person search"),
	}}
	d := newTestDashboard(dates, stops, 12, 20)

	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	dates.entries = []models.DateAvailability{availability("2024-03", "kent")}
	summary, err := d.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNoDataAvailable))
	assert.NotEmpty(t, summary.Error)

	view := d.View()
	assert.Equal(t, 5, view.Pagination.TotalItems)
	assert.Contains(t, view.Error, "no data available")

	dates.entries = []models.DateAvailability{availability("2024-03", "metropolitan")}
	_, err = d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d.View().Error)
}

type blockingDateSource struct {
	calls   int32
	release chan struct{}
	entered chan struct{}
}

func (b *blockingDateSource) CrimesStreetDates(ctx context.Context) ([]models.DateAvailability, error) {
	if atomic.AddInt32(&b.calls, 1) == 1 {
		close(b.entered)
	}
	<-b.release
	return []models.DateAvailability{availability("2024-03", "metropolitan")}, nil
}

func TestDashboard_ConcurrentRefreshesShareOneRun(t *testing.T) {
	dates := &blockingDateSource{release: make(chan struct{}), entered: make(chan struct{})}
	stops := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-03": monthOfStops("2024-03", 3, "Person search"),
	}}
	d := newTestDashboard(dates, stops, 12, 20)

	var wg sync.WaitGroup
	ids := make([]string, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s, err := d.Refresh(context.Background())
		if assert.NoError(t, err) {
			ids[0] = s.ID
		}
	}()
	<-dates.entered
	assert.True(t, d.Refreshing())
	assert.ErrorIs(t, d.StartRefresh(context.Background()), models.ErrRefreshInProgress)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s, err := d.Refresh(context.Background())
		if assert.NoError(t, err) {
			ids[1] = s.ID
		}
	}()

	// give the second caller time to join the in-flight call
	time.Sleep(20 * time.Millisecond)
	close(dates.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&dates.calls))
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, []string{"2024-03"}, stops.calls)
	assert.False(t, d.Refreshing())
}

func TestDashboard_Query(t *testing.T) {
	dates := &fakeDateSource{entries: []models.DateAvailability{availability("2024-03", "metropolitan")}}
	stops := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-03": monthOfStops("2024-03", 30, "Person search"),
	}}
	d := newTestDashboard(dates, stops, 12, 20)
	_, err := d.Refresh(context.Background())
	require.NoError(t, err)

	view, err := d.Query(models.FilterOptions{}, 2, 25)
	require.NoError(t, err)
	assert.Len(t, view.Records, 5)
	assert.Equal(t, 2, view.TotalPages)
	assert.Equal(t, []int{30}, view.Charts.Outcome.Datasets[0].Data)

	// shared state untouched
	assert.Equal(t, models.PaginationState{CurrentPage: 1, ItemsPerPage: 20, TotalItems: 30}, d.View().Pagination)

	_, err = d.Query(models.FilterOptions{}, 0, 25)
	assert.ErrorIs(t, err, models.ErrInvalidPage)
	_, err = d.Query(models.FilterOptions{}, 1, -1)
	assert.ErrorIs(t, err, models.ErrInvalidPageSize)
}
