package models

type Event struct {
	ID        int     `json:"idEvento"`
	Date      APITime `json:"fechaEvento"`
	TeacherID int     `json:"idProfesor,omitempty"`
}

// EventActivity связывает событие с активностью; к нему привязаны команды и капитан.
type EventActivity struct {
	ID           int    `json:"idEventoActividad"`
	EventID      int    `json:"idEvento"`
	ActivityID   int    `json:"idActividad"`
	ActivityName string `json:"nombreActividad,omitempty"`
	MinPlayers   int    `json:"minimoJugadores"`
}
