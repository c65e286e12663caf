package models

import "time"

// Class represents a school class with an optional designated educator.
type Class struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Grade      int       `db:"grade" json:"grade"`
	EducatorID *string   `db:"educator_id" json:"educator_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
