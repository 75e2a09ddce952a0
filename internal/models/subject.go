package models

// Subject represents an academic subject.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
