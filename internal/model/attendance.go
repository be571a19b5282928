package model

import "time"

// CheckIn records a member arriving for a performance.  PerformanceID and
// MemberID never change once the row exists.
type CheckIn struct {
	ID            uint64    `json:"id"`             // check_ins.id
	When          time.Time `json:"when"`           // check_ins.checked_at
	PerformanceID uint64    `json:"performance_id"` // check_ins.performance_id
	MemberID      uint64    `json:"member_id"`      // check_ins.member_id
}

// CheckOut records a member leaving.  Both references are optional so a
// check-out survives deletion of the performance or member it points at.
type CheckOut struct {
	ID            uint64    `json:"id"`                       // check_outs.id
	When          time.Time `json:"when"`                     // check_outs.checked_at
	PerformanceID *uint64   `json:"performance_id,omitempty"` // check_outs.performance_id (nullable)
	MemberID      *uint64   `json:"member_id,omitempty"`      // check_outs.member_id (nullable)
}
