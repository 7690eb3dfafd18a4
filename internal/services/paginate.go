package services

import "stopsearch-bknd/internal/models"

// PaginateRecords returns page (1-based) of size itemsPerPage. Pages outside
// 1..last yield an empty slice.
func PaginateRecords(records []models.IncidentRecord, page, itemsPerPage int) []models.IncidentRecord {
	if itemsPerPage <= 0 || page < 1 {
		return []models.IncidentRecord{}
	}

	totalPages := (len(records) + itemsPerPage - 1) / itemsPerPage
	if page > totalPages {
		return []models.IncidentRecord{}
	}

	start := (page - 1) * itemsPerPage
	end := start + itemsPerPage
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}
