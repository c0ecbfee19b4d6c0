package models

import "strings"

// User is the read model supplied by the identity store. PkID is the serial
// key used as the keyset cursor when streaming broadcast recipients.
type User struct {
	ID          string `json:"id"`
	PkID        int64  `json:"pkid"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Active      bool   `json:"active"`
	Role        string `json:"role,omitempty"`
}

// FullName joins the name parts, tolerating either being empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ContextSnapshot returns the whitelisted primitive fields exposed to template
// rendering. Never hand templates the live record.
func (u *User) ContextSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"id":         u.ID,
		"pkid":       u.PkID,
		"email":      u.Email,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"full_name":  u.FullName(),
		"is_active":  u.Active,
		"role":       u.Role,
	}
}
