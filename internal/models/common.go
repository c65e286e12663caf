package models

import "time"

// Pagination describes list paging metadata.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"page_size"`
	Total     int `json:"total"`
	TotalPage int `json:"total_page"`
}

// SystemMetrics is the lightweight aggregate exposed on the ops endpoint.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DistributionRuns         uint64    `json:"distribution_runs"`
	SlotsPlanned             uint64    `json:"slots_planned"`
	SlotsUncovered           uint64    `json:"slots_uncovered"`
	AssignmentsTotal         uint64    `json:"assignments_total"`
	AssignmentConflicts      uint64    `json:"assignment_conflicts"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
