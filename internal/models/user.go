package models

import (
	"time"

	"github.com/google/uuid"
)

// Role - роль пользователя в системе
type Role string

const (
	RoleUser      Role = "user"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

// Valid проверяет, что роль входит в закрытый набор
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVolunteer, RoleAdmin:
		return true
	}
	return false
}

// UserStatus - статус учетной записи
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

// Valid проверяет, что статус входит в закрытый набор
func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserInactive, UserSuspended:
		return true
	}
	return false
}

// User - учетная запись (репортер, волонтер или администратор)
type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	APIToken  string     `json:"-"` // не отдается наружу
	Latitude  *float64   `json:"latitude,omitempty"`  // текущее местоположение (для волонтеров)
	Longitude *float64   `json:"longitude,omitempty"` //
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
