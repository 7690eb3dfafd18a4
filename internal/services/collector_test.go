package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"stopsearch-bknd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type monthResponse struct {
	records []any
	err     error
}

type fakeStopSearchSource struct {
	responses map[string]monthResponse
	calls     []string
	inFlight  int32
	overlap   bool
}

func (f *fakeStopSearchSource) StopsForce(ctx context.Context, date, force string) ([]any, error) {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		f.overlap = true
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	f.calls = append(f.calls, date)
	resp := f.responses[date]
	return resp.records, resp.err
}

func rawStop(datetime, outcome string) map[string]any {
	return map[string]any{"datetime": datetime, "outcome": outcome, "type": "Person search"}
}

func newTestCollector(src StopSearchSource, sleeps *[]time.Duration) *CollectorService {
	c := NewCollectorService(src, "metropolitan", DefaultFetchDelay, zap.NewNop())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	return c
}

func TestCollect_PartialFailure(t *testing.T) {
	src := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-03": {records: []any{rawStop("2024-03-02T10:00:00+00:00", "Arrest")}},
		"2024-02": {err: errors.New("connection reset")},
		"2024-01": {records: []any{rawStop("2024-01-05T10:00:00+00:00", "Community resolution")}},
	}}
	var sleeps []time.Duration
	c := newTestCollector(src, &sleeps)

	result, err := c.Collect(context.Background(), []string{"2024-03", "2024-02", "2024-01"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Empty(t, result.Error)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Arrest", result.Records[0].Outcome)
	assert.Equal(t, "Community resolution", result.Records[1].Outcome)

	assert.Equal(t, []string{"2024-03", "2024-02", "2024-01"}, src.calls)
	assert.False(t, src.overlap)

	require.Len(t, result.Months, 3)
	assert.Equal(t, models.MonthStatusOK, result.Months[0].Status)
	assert.Equal(t, models.MonthStatusFailed, result.Months[1].Status)
	assert.Equal(t, "connection reset", result.Months[1].Error)
	assert.Equal(t, models.MonthStatusOK, result.Months[2].Status)
}

func TestCollect_DelayBetweenMonthsOnly(t *testing.T) {
	src := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-02": {err: &models.UpstreamError{StatusCode: 429, Err: models.ErrUpstreamRateLimited}},
	}}
	var sleeps []time.Duration
	c := newTestCollector(src, &sleeps)

	_, err := c.Collect(context.Background(), []string{"2024-03", "2024-02", "2024-01"})
	require.NoError(t, err)

	// the delay is fixed and unaffected by the failed month
	assert.Equal(t, []time.Duration{DefaultFetchDelay, DefaultFetchDelay}, sleeps)
}

func TestCollect_AllMonthsFailIsNotAnError(t *testing.T) {
	src := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-02": {err: &models.UpstreamError{StatusCode: 429, Err: models.ErrUpstreamRateLimited}},
		"2024-01": {err: errors.New("ctx: " + models.ErrUpstreamTimeout.Error())},
	}}
	var sleeps []time.Duration
	c := newTestCollector(src, &sleeps)

	result, err := c.Collect(context.Background(), []string{"2024-02", "2024-01"})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Error)
	assert.Equal(t, models.MonthStatusRateLimited, result.Months[0].Status)
	assert.Equal(t, models.MonthStatusFailed, result.Months[1].Status)
}

func TestCollect_NotFoundIsEmpty(t *testing.T) {
	src := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-01": {err: &models.UpstreamError{StatusCode: 404, Err: models.ErrUpstreamNotFound}},
	}}
	var sleeps []time.Duration
	c := newTestCollector(src, &sleeps)

	result, err := c.Collect(context.Background(), []string{"2024-01"})
	require.NoError(t, err)
	assert.Empty(t, sleeps)
	assert.Equal(t, models.MonthStatusEmpty, result.Months[0].Status)
}

func TestCollect_DropsMalformedRecords(t *testing.T) {
	src := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-01": {records: []any{
			rawStop("2024-01-05T10:00:00+00:00", "Arrest"),
			nil,
			"not an object",
			map[string]any{"datetime": "2024-01-06T10:00:00+00:00"},
			map[string]any{"outcome": "Arrest"},
		}},
	}}
	var sleeps []time.Duration
	c := newTestCollector(src, &sleeps)

	result, err := c.Collect(context.Background(), []string{"2024-01"})
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.Months[0].Records)
	assert.Equal(t, 4, result.Months[0].Dropped)
}

func TestCollect_EmptyMonths(t *testing.T) {
	c := NewCollectorService(&fakeStopSearchSource{}, "metropolitan", 0, zap.NewNop())

	result, err := c.Collect(context.Background(), nil)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, models.ErrNoMonths))
}

func TestCollect_Cancelled(t *testing.T) {
	src := &fakeStopSearchSource{responses: map[string]monthResponse{
		"2024-02": {records: []any{rawStop("2024-02-05T10:00:00+00:00", "Arrest")}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCollectorService(src, "metropolitan", DefaultFetchDelay, zap.NewNop())
	c.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	result, err := c.Collect(ctx, []string{"2024-02", "2024-01"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, result.Records, 1)
	assert.Equal(t, []string{"2024-02"}, src.calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
	assert.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
