package model

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	FullName *string `json:"full_name"`
}

// LoginRequest accepts the OAuth2 password form (username/password) or the same fields as JSON.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UserRead struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account row. PasswordHash is the stored credential and never leaves the server.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Read() UserRead {
	return UserRead{
		UserID:    u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
