package profile

import "strings"

// Profile holds the contact channels of a member. Either field may be empty.
type Profile struct {
	ID    string
	Email string
	Phone string
}

// New builds a profile from raw column values, trimming whitespace.
func New(id, email, phone string) Profile {
	return Profile{
		ID:    id,
		Email: strings.TrimSpace(email),
		Phone: strings.TrimSpace(phone),
	}
}

// HasEmail reports whether the profile can receive email.
// INVARIANT: Profile fields are not mutated
func (p Profile) HasEmail() bool {
	return p.Email != ""
}

// HasPhone reports whether the profile can receive SMS.
// INVARIANT: Profile fields are not mutated
func (p Profile) HasPhone() bool {
	return p.Phone != ""
}
