package dto

// ExportQuery requests a rendered substitution ledger for one date.
type ExportQuery struct {
	Date   string `form:"date" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" validate:"required,oneof=csv pdf"`
}

// ExportResponse points the caller at the rendered file.
type ExportResponse struct {
	URL       string `json:"url"`
	Format    string `json:"format"`
	ExpiresAt string `json:"expires_at"`
	Rows      int    `json:"rows"`
}
