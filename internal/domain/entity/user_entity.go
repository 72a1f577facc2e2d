package entity

import "time"

// Session is an admin bearer token held for one run.
// It is never refreshed or persisted.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Subject     string
}

// NewUser is the payload for seeding a realm user.
type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Resolution is the result of looking up one configured username.
// ID is empty when the username did not resolve.
type Resolution struct {
	Username string `json:"username"`
	ID       string `json:"id,omitempty"`
	Created  bool   `json:"created,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r Resolution) Bound() bool { return r.ID != "" }
