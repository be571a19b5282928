package model

import "time"

// Performance is a scheduled appearance of a performer, optionally on a
// stage.  Duration is expressed in minutes.
type Performance struct {
	ID          uint64    `json:"id"`                 // performances.id
	Duration    int       `json:"duration"`           // performances.duration_min
	When        time.Time `json:"when"`               // performances.scheduled_at
	PerformerID uint64    `json:"performer_id"`       // performances.performer_id
	StageID     *uint64   `json:"stage_id,omitempty"` // performances.stage_id (nullable)
	CreatedAt   time.Time `json:"created_at"`         // performances.created_at
}
