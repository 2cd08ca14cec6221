package v1

import (
	"time"

	"github.com/google/uuid"
)

// Response - общий конверт ответа API
// @Description Общий конверт ответа API
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
}

// LocationDTO - географическая точка в запросах и ответах
type LocationDTO struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

// CreateIncidentRequest DTO для создания инцидента
// @Description DTO для создания инцидента
type CreateIncidentRequest struct {
	Type        string      `json:"type" validate:"required,oneof=fire medical flood earthquake storm other"`
	Severity    int         `json:"severity" validate:"required,min=1,max=5"`
	Description string      `json:"description" validate:"required"`
	Location    LocationDTO `json:"location" validate:"required"`
}

// UpdateIncidentRequest DTO для частичного обновления инцидента.
// Поле assigned_to отклоняется: назначение делается только через
// операции диспетчеризации (assign-task / assign-incident).
// @Description DTO для частичного обновления инцидента
type UpdateIncidentRequest struct {
	Status      *string    `json:"status,omitempty" validate:"omitempty,oneof=unverified available pending in-progress completed"`
	Description *string    `json:"description,omitempty"`
	Severity    *int       `json:"severity,omitempty" validate:"omitempty,min=1,max=5"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	Verified    *bool      `json:"verified,omitempty"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                 string      `json:"id"`
	Type               string      `json:"type"`
	Severity           int         `json:"severity"`
	Status             string      `json:"status"`
	Location           LocationDTO `json:"location"`
	Description        string      `json:"description"`
	Reporter           string      `json:"reporter"`
	ReporterID         uuid.UUID   `json:"reporter_id"`
	Verified           bool        `json:"verified"`
	VerifiedBy         *uuid.UUID  `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time  `json:"verified_at,omitempty"`
	AssignedTo         *uuid.UUID  `json:"assigned_to,omitempty"`
	AssignedAt         *time.Time  `json:"assigned_at,omitempty"`
	AssignedVolunteers []uuid.UUID `json:"assigned_volunteers,omitempty"`
	ResolvedAt         *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// AddNoteRequest DTO для добавления заметки к инциденту
// @Description DTO для добавления заметки к инциденту
type AddNoteRequest struct {
	Note string `json:"note" validate:"required"`
}

// NoteResponse DTO для заметки инцидента
// @Description DTO для заметки инцидента
type NoteResponse struct {
	ID         int64     `json:"id"`
	IncidentID string    `json:"incident_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	Note       string    `json:"note"`
	AddedAt    time.Time `json:"added_at"`
}

// AssignIncidentRequest DTO для административного назначения инцидента
// @Description DTO для административного назначения инцидента
type AssignIncidentRequest struct {
	VolunteerID uuid.UUID `json:"volunteer_id" validate:"required"`
}

// UpdateLocationRequest DTO для обновления местоположения
// @Description DTO для обновления местоположения
type UpdateLocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

// CreateUserRequest DTO для создания пользователя администратором
// @Description DTO для создания пользователя администратором
type CreateUserRequest struct {
	Name string `json:"name" validate:"required,min=2,max=255"`
	Role string `json:"role" validate:"required,oneof=user volunteer admin"`
}

// UpdateRoleRequest DTO для смены роли пользователя
// @Description DTO для смены роли пользователя
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user volunteer admin"`
}

// UpdateUserStatusRequest DTO для смены статуса учетной записи
// @Description DTO для смены статуса учетной записи
type UpdateUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

// UserResponse DTO для ответа с информацией о пользователе
// @Description DTO для ответа с информацией о пользователе
type UserResponse struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Role      string       `json:"role"`
	Status    string       `json:"status"`
	APIToken  string       `json:"api_token,omitempty"` // только при создании
	Location  *LocationDTO `json:"location,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// RouteResponse DTO для ответа советчика маршрутов
// @Description DTO для ответа советчика маршрутов
type RouteResponse struct {
	Path       []LocationDTO `json:"path"`
	DistanceKm float64       `json:"distance_km"`
}
