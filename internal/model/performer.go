package model

// Performer is a person scheduled to appear in performances.  A performer
// may exist without being assigned to a member.
type Performer struct {
	ID          uint64  `json:"id"`                     // performers.id
	Name        string  `json:"name"`                   // performers.name (unique)
	PhoneNumber *string `json:"phone_number,omitempty"` // performers.phone_number (nullable)
	MemberID    *uint64 `json:"member_id,omitempty"`    // performers.member_id (nullable)
}
