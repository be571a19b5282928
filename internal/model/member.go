package model

// Member is a venue-side account, distinct from a login User.  Members own
// performers and the check-in/check-out history at performances.
type Member struct {
	ID           uint64 `json:"id"`         // members.id
	FirstName    string `json:"first_name"` // members.first_name
	LastName     string `json:"last_name"`  // members.last_name; (first_name, last_name) is unique
	Email        string `json:"email"`      // members.email (unique)
	PasswordHash string `json:"-"`          // members.password_hash
}
