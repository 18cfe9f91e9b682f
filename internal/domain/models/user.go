package models

import "time"

// User is an account allowed to sign in to the dashboard.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
}

// UserUpdate supports PATCH-style updates via key presence.
type UserUpdate struct {
	FullName     *string
	Role         *string
	PasswordHash *string
}
