package models

import (
	"time"
)

// User is an account that can sign in to Ebis
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy of the user without credential material
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// LoginCredentials is the payload of a login attempt
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterCredentials is the payload of a registration
type RegisterCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// UserUpdate carries the mutable profile fields. Nil fields are left as is.
type UserUpdate struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// Session binds a bearer token to a user until ExpiresAt
type Session struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// AuthResponse is the outcome of a login or registration
type AuthResponse struct {
	Success bool              `json:"success"`
	User    *User             `json:"user,omitempty"`
	Token   string            `json:"token,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}
