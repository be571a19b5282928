// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// ActivityQueueName is the durable queue carrying venue activity.
const ActivityQueueName = "venue.activity"

// Activity event types.
const (
	EventCheckInCreated  = "checkin.created"
	EventCheckOutCreated = "checkout.created"
	EventStorageStored   = "storage.stored"
	EventStorageReleased = "storage.released"
)

// ActivityEvent is published after a check-in, check-out, store or release
// commits.  Only the ids relevant to Type are set.
type ActivityEvent struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	MemberID      uint64   `json:"member_id,omitempty"`
	PerformanceID uint64   `json:"performance_id,omitempty"`
	CheckInID     uint64   `json:"checkin_id,omitempty"`
	CheckOutID    uint64   `json:"checkout_id,omitempty"`
	StorageID     uint64   `json:"storage_id,omitempty"`
	BoxID         uint64   `json:"box_id,omitempty"`
	Released      []uint64 `json:"released,omitempty"`
	At            string   `json:"at"`
}

// NewActivityEvent stamps a fresh event id and the occurrence time.
func NewActivityEvent(typ string, at time.Time) ActivityEvent {
	return ActivityEvent{
		ID:   uuid.NewString(),
		Type: typ,
		At:   at.UTC().Format(time.RFC3339Nano),
	}
}
