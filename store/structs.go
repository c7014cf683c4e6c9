package store

// Lead is a single tracked lead. Column names are the json tags.
type Lead struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Source       string `json:"source"`
	Notes        string `json:"notes"`
	FollowUpDate string `json:"follow_up_date"` // ISO-8601, UTC
}

// CreateLeadRequest is the caller-supplied part of a Lead.
type CreateLeadRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Source string `json:"source"`
	Notes  string `json:"notes,omitempty"`
}
