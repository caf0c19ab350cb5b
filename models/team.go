package models

type Team struct {
	ID              int    `json:"idEquipo"`
	EventActivityID int    `json:"idEventoActividad"`
	Name            string `json:"nombreEquipo"`
	MinPlayers      int    `json:"minimoJugadores"`
	ColorID         int    `json:"idColor"`
	CourseID        int    `json:"idCurso"`
}

type TeamMember struct {
	ID     int `json:"idMiembroEquipo"`
	TeamID int `json:"idEquipo"`
	UserID int `json:"idUsuario"`
}

// MemberRole передаётся в URL при создании членства.
type MemberRole string

const MemberRoleStudent MemberRole = "ALUMNO"
