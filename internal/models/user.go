package models

import (
	"time"

	"github.com/google/uuid"
)

// Имена ролей как в таблице roles.
const (
	RoleUser      = "USER"
	RoleSuperuser = "SUPERUSER"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	Username     *string   `json:"username,omitempty"`
	PasswordHash string    `json:"-"` // не отдаём наружу
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasRole — входит ли роль в набор ролей пользователя.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

type SignUpRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type VerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type SuperuserCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
