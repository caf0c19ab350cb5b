package models

// Enrollment - запись пользователя на активность события.
// EventID, ActivityID и ActivityName приходят только в списке записей пользователя.
type Enrollment struct {
	ID               int     `json:"idInscripcion"`
	UserID           int     `json:"idUsuario"`
	EventActivityID  int     `json:"idEventoActividad"`
	WantsToBeCaptain bool    `json:"quiereSerCapitan"`
	EnrolledAt       APITime `json:"fechaInscripcion"`

	EventID      int    `json:"idEvento,omitempty"`
	ActivityID   int    `json:"idActividad,omitempty"`
	ActivityName string `json:"nombreActividad,omitempty"`
}

// EnrolledUser - пользователь, записанный на активность.
type EnrolledUser struct {
	UserID    int    `json:"idUsuario"`
	Username  string `json:"usuario,omitempty"`
	FirstName string `json:"nombre,omitempty"`
	LastName  string `json:"apellidos,omitempty"`
	Email     string `json:"email,omitempty"`
	CourseID  int    `json:"idCurso,omitempty"`
}

func (u EnrolledUser) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return "Usuario"
	}
}
