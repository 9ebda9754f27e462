package domain

import "time"

// User represents a registered author or moderator.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	RoleID       int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate carries the optional fields of a profile update. Nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	RoleID   *int64
}
