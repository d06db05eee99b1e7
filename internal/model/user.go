package model

import (
	"strings"
	"time"
)

// UserType is the role string stored with a user.
type UserType string

const (
	UserTypeManager UserType = "manager"
	UserTypeMember  UserType = "member"
)

// ParseUserType normalizes a role string. ok is false for anything other
// than manager or member.
func ParseUserType(s string) (ut UserType, ok bool) {
	ut = UserType(strings.ToLower(strings.TrimSpace(s)))
	return ut, ut == UserTypeManager || ut == UserTypeMember
}

// IsManager returns true for the privileged role.
func (u UserType) IsManager() bool {
	return u == UserTypeManager
}

// User is a directory entry used to resolve a bill owner's role.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UserType  UserType  `json:"userType"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeEmail lowercases and trims an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
