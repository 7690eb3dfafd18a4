package services

import (
	"slices"
	"strings"
	"time"

	"stopsearch-bknd/internal/models"
)

var recordTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseRecordTime parses an ISO-8601 record timestamp. Timestamps without an
// offset are read as UTC.
func ParseRecordTime(s string) (time.Time, bool) {
	for _, layout := range recordTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterRecords keeps the records matching every active clause, preserving
// order. The date clause only applies when both bounds are set.
func FilterRecords(records []models.IncidentRecord, filters models.FilterOptions) []models.IncidentRecord {
	checkDates := filters.DateRange.Start != nil && filters.DateRange.End != nil
	var rangeStart, rangeEnd time.Time
	if checkDates {
		rangeStart = startOfDay(*filters.DateRange.Start)
		rangeEnd = endOfDay(*filters.DateRange.End)
	}

	checkLocation := len(filters.Location) > 0
	location := ""
	if checkLocation {
		location = strings.ToLower(strings.TrimSpace(filters.Location[0]))
	}

	out := make([]models.IncidentRecord, 0, len(records))
	for _, rec := range records {
		if checkDates {
			t, ok := ParseRecordTime(rec.Datetime)
			if !ok || t.Before(rangeStart) || t.After(rangeEnd) {
				continue
			}
		}

		if checkLocation && !strings.Contains(strings.ToLower(rec.StreetName()), location) {
			continue
		}

		if len(filters.SearchType) > 0 && !slices.Contains(filters.SearchType, rec.Type) {
			continue
		}

		out = append(out, rec)
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
