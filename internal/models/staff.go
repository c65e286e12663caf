package models

import (
	"strings"
	"time"
)

// Staff represents a member of the teaching roster.
type Staff struct {
	ID              string    `db:"id" json:"id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Email           string    `db:"email" json:"email"`
	Subjects        string    `db:"subjects" json:"subjects"`
	EducatorClassID *string   `db:"educator_class_id" json:"educator_class_id,omitempty"`
	External        bool      `db:"external" json:"external"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectList splits the comma-joined subjects column.
func (s *Staff) SubjectList() []string {
	if s == nil || s.Subjects == "" {
		return nil
	}
	parts := strings.Split(s.Subjects, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Teaches reports whether the subject appears in the staff member's list.
func (s *Staff) Teaches(subject string) bool {
	subject = strings.TrimSpace(strings.ToLower(subject))
	for _, candidate := range s.SubjectList() {
		if strings.ToLower(candidate) == subject {
			return true
		}
	}
	return false
}

// StaffFilter captures filtering options for listing staff.
type StaffFilter struct {
	Search   string
	Active   *bool
	External *bool
	Page     int
	PageSize int
}
