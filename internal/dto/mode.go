package dto

import "github.com/noah-isme/sma-coverage-api/internal/models"

// SaveModeRequest creates or updates a mode configuration.
type SaveModeRequest struct {
	Name            string              `json:"name" validate:"required"`
	LinkedEventType string              `json:"linked_event_type" validate:"required"`
	GoldenRules     []models.GoldenRule `json:"golden_rules"`
	Ladder          []models.LadderRule `json:"ladder"`
	Enabled         *bool               `json:"enabled,omitempty"`
}
