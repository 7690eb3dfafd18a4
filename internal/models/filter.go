package models

import "time"

// DateRange bounds are calendar days; either may be nil.
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// FilterOptions narrows the canonical collection. An empty axis is unconstrained.
// Only the first Location entry is used.
type FilterOptions struct {
	DateRange  DateRange `json:"dateRange"`
	Location   []string  `json:"location"`
	SearchType []string  `json:"searchType"`
}

type PaginationState struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
}

// TotalPages is ceil(TotalItems / ItemsPerPage).
func (p PaginationState) TotalPages() int {
	if p.ItemsPerPage <= 0 {
		return 0
	}
	return (p.TotalItems + p.ItemsPerPage - 1) / p.ItemsPerPage
}

type ChartDataset struct {
	Label           string   `json:"label"`
	Data            []int    `json:"data"`
	BackgroundColor []string `json:"backgroundColor"`
	BorderColor     []string `json:"borderColor"`
	BorderWidth     int      `json:"borderWidth"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type Charts struct {
	Outcome ChartData `json:"outcome"`
	Trend   ChartData `json:"trend"`
}

// DashboardView is a read-only snapshot handed to the presentation layer.
type DashboardView struct {
	Records     []IncidentRecord `json:"records"`
	Pagination  PaginationState  `json:"pagination"`
	TotalPages  int              `json:"totalPages"`
	Filters     FilterOptions    `json:"filters"`
	Charts      Charts           `json:"charts"`
	SearchTypes []string         `json:"searchTypes"`
	LastUpdated *time.Time       `json:"lastUpdated"`
	Loading     bool             `json:"loading"`
	Error       string           `json:"error,omitempty"`
	Months      []MonthStatus    `json:"months"`
}
