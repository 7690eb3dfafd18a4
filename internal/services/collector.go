package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stopsearch-bknd/internal/metrics"
	"stopsearch-bknd/internal/models"

	"go.uber.org/zap"
)

// DefaultFetchDelay is the pause between consecutive month requests.
const DefaultFetchDelay = 500 * time.Millisecond

type StopSearchSource interface {
	StopsForce(ctx context.Context, date, force string) ([]any, error)
}

// CollectorService fetches months one at a time with a fixed pause between
// requests. It is not safe to run two collections against the same upstream
// concurrently; Dashboard serialises refreshes.
type CollectorService struct {
	source StopSearchSource
	force  string
	delay  time.Duration
	logr   *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewCollectorService(source StopSearchSource, force string, delay time.Duration, logr *zap.Logger) *CollectorService {
	if delay < 0 {
		delay = DefaultFetchDelay
	}
	return &CollectorService{
		source: source,
		force:  force,
		delay:  delay,
		logr:   logr,
		sleep:  sleepContext,
	}
}

// Collect gathers and normalizes records for months in order. A failing month
// is logged and skipped; the only errors are an empty month list and context
// cancellation, in which case the records gathered so far are still returned.
func (s *CollectorService) Collect(ctx context.Context, months []string) (*models.CollectionResult, error) {
	if len(months) == 0 {
		return nil, models.ErrNoMonths
	}

	result := &models.CollectionResult{
		Records: []models.IncidentRecord{},
		Months:  make([]models.MonthStatus, 0, len(months)),
	}

	for i, month := range months {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("collection interrupted before %s: %w", month, err)
		}

		status := s.collectMonth(ctx, month, result)
		result.Months = append(result.Months, status)
		metrics.MonthFetches.WithLabelValues(string(status.Status)).Inc()

		if i < len(months)-1 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return result, fmt.Errorf("collection interrupted after %s: %w", month, err)
			}
		}
	}

	s.logr.Info("collection finished",
		zap.Int("months", len(months)),
		zap.Int("records", len(result.Records)))

	return result, nil
}

func (s *CollectorService) collectMonth(ctx context.Context, month string, result *models.CollectionResult) models.MonthStatus {
	status := models.MonthStatus{Month: month}

	raw, err := s.source.StopsForce(ctx, month, s.force)
	if err != nil {
		status.Status = classifyMonthError(err)
		status.Error = err.Error()
		if status.Status == models.MonthStatusEmpty {
			s.logr.Info("no data for month", zap.String("month", month))
		} else {
			s.logr.Warn("failed to fetch month",
				zap.String("month", month),
				zap.String("status", string(status.Status)),
				zap.Error(err))
		}
		return status
	}

	for _, item := range raw {
		rec, ok := IsWellFormed(item)
		if !ok {
			status.Dropped++
			continue
		}
		result.Records = append(result.Records, NormalizeRecord(rec))
		status.Records++
	}

	if status.Dropped > 0 {
		metrics.RecordsDropped.Add(float64(status.Dropped))
		s.logr.Debug("dropped malformed records", zap.String("month", month), zap.Int("dropped", status.Dropped))
	}

	status.Status = models.MonthStatusOK
	if status.Records == 0 {
		status.Status = models.MonthStatusEmpty
	}
	return status
}

func classifyMonthError(err error) models.MonthStatusKind {
	switch {
	case errors.Is(err, models.ErrUpstreamNotFound):
		return models.MonthStatusEmpty
	case errors.Is(err, models.ErrUpstreamRateLimited):
		return models.MonthStatusRateLimited
	case errors.Is(err, models.ErrUpstreamTimeout):
		return models.MonthStatusTimeout
	}
	return models.MonthStatusFailed
}

// sleepContext waits for d or until ctx is done. The timer is always released.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
