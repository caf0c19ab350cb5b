package models

type UserRole string

const (
	RoleTeacher   UserRole = "PROFESOR"
	RoleStudent   UserRole = "ALUMNO"
	RoleAdmin     UserRole = "ADMINISTRADOR"
	RoleOrganizer UserRole = "ORGANIZADOR"
	RoleCaptain   UserRole = "CAPITAN"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleAdmin, RoleOrganizer, RoleCaptain:
		return true
	}
	return false
}

// Profile - профиль текущего пользователя на бэкенде.
type Profile struct {
	UserID   int      `json:"idUsuario"`
	CourseID int      `json:"idCurso"`
	Username string   `json:"usuario,omitempty"`
	Role     UserRole `json:"role,omitempty"`
}
