package models

// Level is a flat study-level category. No ordering is enforced.
type Level struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
