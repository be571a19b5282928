package model

import "time"

// Box is a physical storage compartment.  Its ID is the label printed on
// the box and is supplied by the caller rather than generated.
type Box struct {
	ID      uint64  `json:"id"`                 // boxes.id
	StageID *uint64 `json:"stage_id,omitempty"` // boxes.stage_id (nullable)
}

// Storage tracks an item placed in a box on behalf of a check-in.
// TimeOut stays nil until the item is released.
type Storage struct {
	ID        uint64     `json:"id"`                 // storage_records.id
	BoxID     *uint64    `json:"box_id,omitempty"`   // storage_records.box_id (nullable)
	CheckInID uint64     `json:"checkin_id"`         // storage_records.checkin_id
	TimeIn    time.Time  `json:"time_in"`            // storage_records.time_in
	TimeOut   *time.Time `json:"time_out,omitempty"` // storage_records.time_out (nullable)
}

// Released reports whether the item has left the box.
func (s Storage) Released() bool { return s.TimeOut != nil }
