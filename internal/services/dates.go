package services

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"stopsearch-bknd/internal/models"

	"go.uber.org/zap"
)

// DefaultMonthWindow is how many recent months a refresh collects.
const DefaultMonthWindow = 12

type DateSource interface {
	CrimesStreetDates(ctx context.Context) ([]models.DateAvailability, error)
}

type DateDiscoveryService struct {
	source   DateSource
	category string
	logr     *zap.Logger
}

func NewDateDiscoveryService(source DateSource, category string, logr *zap.Logger) *DateDiscoveryService {
	return &DateDiscoveryService{source: source, category: category, logr: logr}
}

// DiscoverAvailableMonths returns the months for which force published data in
// the configured category, latest first. Zero matches is ErrNoDataAvailable.
func (s *DateDiscoveryService) DiscoverAvailableMonths(ctx context.Context, force string) (*models.AvailableDates, error) {
	entries, err := s.source.CrimesStreetDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching available dates: %w", err)
	}

	var dates []string
	for _, e := range entries {
		if slices.Contains(e.Categories[s.category], force) {
			dates = append(dates, e.Date)
		}
	}

	if len(dates) == 0 {
		s.logr.Warn("no available dates for force",
			zap.String("force", force),
			zap.String("category", s.category),
			zap.Int("entries", len(entries)))
		return nil, fmt.Errorf("%w for force %s", models.ErrNoDataAvailable, force)
	}

	// YYYY-MM sorts chronologically as a string
	sort.Slice(dates, func(i, j int) bool { return dates[i] > dates[j] })

	return &models.AvailableDates{
		Dates:    dates,
		Total:    len(dates),
		Latest:   dates[0],
		Earliest: dates[len(dates)-1],
	}, nil
}
