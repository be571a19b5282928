package model

// Stage is a named performance area of the venue.
type Stage struct {
	ID   uint64 `json:"id"`   // stages.id
	Name string `json:"name"` // stages.name (unique)
}
