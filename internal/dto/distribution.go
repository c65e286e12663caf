package dto

// ConfirmedMode selects the scope one mode applies to in a bulk run.
type ConfirmedMode struct {
	ModeID   string   `json:"mode_id" validate:"required"`
	ClassIDs []string `json:"class_ids" validate:"required,min=1"`
	Periods  []int    `json:"periods" validate:"required,min=1"`
}

// ModeDistributionRequest asks for a mode-driven bulk distribution run
// over the Cartesian product of each confirmed mode's classes × periods.
type ModeDistributionRequest struct {
	Date  string          `json:"date" validate:"required,datetime=2006-01-02"`
	Modes []ConfirmedMode `json:"modes" validate:"required,min=1,dive"`
}

// DistributionRunResponse acknowledges an asynchronous run.
type DistributionRunResponse struct {
	RunID string `json:"run_id"`
	State string `json:"state"`
}
