package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentType - тип происшествия (закрытый набор значений)
type IncidentType string

const (
	TypeFire       IncidentType = "fire"
	TypeMedical    IncidentType = "medical"
	TypeFlood      IncidentType = "flood"
	TypeEarthquake IncidentType = "earthquake"
	TypeStorm      IncidentType = "storm"
	TypeOther      IncidentType = "other"
)

// Valid проверяет, что тип входит в закрытый набор
func (t IncidentType) Valid() bool {
	switch t {
	case TypeFire, TypeMedical, TypeFlood, TypeEarthquake, TypeStorm, TypeOther:
		return true
	}
	return false
}

// IncidentStatus - статус жизненного цикла инцидента
type IncidentStatus string

const (
	StatusUnverified IncidentStatus = "unverified"
	StatusAvailable  IncidentStatus = "available"
	StatusPending    IncidentStatus = "pending"
	StatusInProgress IncidentStatus = "in-progress"
	StatusCompleted  IncidentStatus = "completed"
)

// Valid проверяет, что статус входит в закрытый набор
func (s IncidentStatus) Valid() bool {
	switch s {
	case StatusUnverified, StatusAvailable, StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Assigned сообщает, находится ли инцидент в работе у волонтера
func (s IncidentStatus) Assigned() bool {
	return s == StatusPending || s == StatusInProgress
}

// Incident - запись о происшествии с жизненным циклом
// unverified -> available -> pending -> in-progress -> completed
type Incident struct {
	ID                 string         `json:"id"` // формат INC-<год>-<номер>
	Type               IncidentType   `json:"type"`
	Severity           int            `json:"severity"` // 1..5
	Status             IncidentStatus `json:"status"`
	Latitude           float64        `json:"latitude"`
	Longitude          float64        `json:"longitude"`
	Description        string         `json:"description"`
	Reporter           string         `json:"reporter"`
	ReporterID         uuid.UUID      `json:"reporter_id"`
	Verified           bool           `json:"verified"`
	VerifiedBy         *uuid.UUID     `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time     `json:"verified_at,omitempty"`
	AssignedTo         *uuid.UUID     `json:"assigned_to,omitempty"`
	AssignedAt         *time.Time     `json:"assigned_at,omitempty"`
	AssignedVolunteers []uuid.UUID    `json:"assigned_volunteers,omitempty"` // история всех назначений
	ResolvedAt         *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// IncidentNote - запись в журнале заметок инцидента (только добавление)
type IncidentNote struct {
	ID         int64     `json:"id"`
	IncidentID string    `json:"incident_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	Note       string    `json:"note"`
	AddedAt    time.Time `json:"added_at"`
}

// IncidentUpdate - частичное обновление инцидента (nil-поля не трогаются)
type IncidentUpdate struct {
	Status      *IncidentStatus
	Description *string
	Severity    *int
	AssignedTo  *uuid.UUID
	Verified    *bool
}

// IncidentFilter - фильтры для выборки инцидентов.
// OrderBySeverity включает сортировку лент задач: сначала по важности,
// затем по свежести.
type IncidentFilter struct {
	Status          *IncidentStatus
	Verified        *bool
	Type            *IncidentType
	Severity        *int
	OrderBySeverity bool
}

// IncidentStats - агрегированная статистика для админской панели
type IncidentStats struct {
	TotalIncidents      int                    `json:"total_incidents"`
	VerifiedIncidents   int                    `json:"verified_incidents"`
	UnverifiedIncidents int                    `json:"unverified_incidents"`
	CompletedIncidents  int                    `json:"completed_incidents"`
	ActiveVolunteers    int                    `json:"active_volunteers"`
	TotalUsers          int                    `json:"total_users"`
	ByStatus            map[IncidentStatus]int `json:"by_status"`
	ByType              map[IncidentType]int   `json:"by_type"`
	BySeverity          map[int]int            `json:"by_severity"`
}
