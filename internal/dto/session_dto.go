package dto

import "strings"

// Session identifies the caller of a request. It is built from bearer token
// claims and passed explicitly to the services that need it.
type Session struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Token  string `json:"-"`
}

// HasRole reports whether the session carries one of the given roles.
func (s Session) HasRole(roles ...string) bool {
	for _, role := range roles {
		if strings.EqualFold(s.Role, role) {
			return true
		}
	}
	return false
}

// Anonymous reports whether no user is attached to the session.
func (s Session) Anonymous() bool {
	return strings.TrimSpace(s.UserID) == ""
}
