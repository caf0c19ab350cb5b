package models

import "time"

// Captaincy - капитан активности события, не более одного на EventActivity.
type Captaincy struct {
	ID              int `json:"idCapitanActividad"`
	EventActivityID int `json:"idEventoActividad"`
	UserID          int `json:"idUsuario"`
}

type AssignmentMode string

const (
	AssignmentRandom  AssignmentMode = "random"
	AssignmentManual  AssignmentMode = "manual"
	AssignmentRemoved AssignmentMode = "removed"
)

// CaptainAssignment - запись журнала назначений капитанов.
type CaptainAssignment struct {
	ID              int            `json:"id" db:"id"`
	EventActivityID int            `json:"event_activity_id" db:"event_activity_id"`
	UserID          int            `json:"user_id" db:"user_id"`
	PreviousUserID  *int           `json:"previous_user_id,omitempty" db:"previous_user_id"`
	Mode            AssignmentMode `json:"mode" db:"mode"`
	AssignedBy      int            `json:"assigned_by" db:"assigned_by"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}
