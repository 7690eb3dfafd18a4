package services

import (
	"sort"
	"time"

	"stopsearch-bknd/internal/models"
)

const (
	outcomeDatasetLabel = "Number of Searches"
	trendDatasetLabel   = "Searches per Month"
	monthKeyLayout      = "2006-01"
	monthLabelLayout    = "Jan 2006"
)

var outcomePalette = []string{
	"#3B82F6", "#EF4444", "#10B981", "#F59E0B", "#8B5CF6",
	"#06B6D4", "#84CC16", "#F97316", "#EC4899", "#6366F1",
}

// OutcomeChartData counts records per outcome in first-seen order. Colours
// cycle through a ten-entry palette.
func OutcomeChartData(records []models.IncidentRecord) models.ChartData {
	labels := []string{}
	counts := map[string]int{}
	for _, rec := range records {
		if _, seen := counts[rec.Outcome]; !seen {
			labels = append(labels, rec.Outcome)
		}
		counts[rec.Outcome]++
	}

	data := make([]int, len(labels))
	colors := make([]string, len(labels))
	for i, label := range labels {
		data[i] = counts[label]
		colors[i] = outcomePalette[i%len(outcomePalette)]
	}

	return models.ChartData{
		Labels: labels,
		Datasets: []models.ChartDataset{{
			Label:           outcomeDatasetLabel,
			Data:            data,
			BackgroundColor: colors,
			BorderColor:     colors,
			BorderWidth:     1,
		}},
	}
}

// MonthlyTrendChartData counts records per calendar month across every month
// from the earliest to the latest record, zero-filling the gaps. Records with
// an unparseable timestamp are not counted.
func MonthlyTrendChartData(records []models.IncidentRecord) models.ChartData {
	counts := map[string]int{}
	var first, last time.Time
	found := false
	for _, rec := range records {
		t, ok := ParseRecordTime(rec.Datetime)
		if !ok {
			continue
		}
		month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		if !found || month.Before(first) {
			first = month
		}
		if !found || month.After(last) {
			last = month
		}
		found = true
		counts[month.Format(monthKeyLayout)]++
	}

	labels := []string{}
	data := []int{}
	if found {
		for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
			labels = append(labels, m.Format(monthLabelLayout))
			data = append(data, counts[m.Format(monthKeyLayout)])
		}
	}

	return models.ChartData{
		Labels: labels,
		Datasets: []models.ChartDataset{{
			Label:           trendDatasetLabel,
			Data:            data,
			BackgroundColor: []string{"rgba(59, 130, 246, 0.2)"},
			BorderColor:     []string{"#3B82F6"},
			BorderWidth:     2,
		}},
	}
}

// SearchTypeValues lists the distinct non-empty search types, sorted.
func SearchTypeValues(records []models.IncidentRecord) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, rec := range records {
		if rec.Type == "" {
			continue
		}
		if _, ok := seen[rec.Type]; ok {
			continue
		}
		seen[rec.Type] = struct{}{}
		out = append(out, rec.Type)
	}
	sort.Strings(out)
	return out
}
