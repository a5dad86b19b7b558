package models

// Role is the fixed slot a participant occupies in a session.
type Role string

const (
	RoleCreator Role = "user1"
	RoleJoiner  Role = "user2"
)

// Valid reports whether r is one of the two session slots.
func (r Role) Valid() bool {
	return r == RoleCreator || r == RoleJoiner
}

// Other returns the opposite slot.
func (r Role) Other() Role {
	if r == RoleCreator {
		return RoleJoiner
	}
	return RoleCreator
}

// Session is the active conversation binding two participants.
type Session struct {
	SessionID         string `json:"session_id"`
	UserRole          Role   `json:"user_role"`
	MyName            string `json:"my_name"`
	MyLanguage        string `json:"my_language"`
	OtherUserName     string `json:"other_user_name"`
	OtherUserLanguage string `json:"other_user_language"` // empty until the peer joins
}

// PeerJoined reports whether the other participant's language is known.
func (s Session) PeerJoined() bool {
	return s.OtherUserLanguage != ""
}
