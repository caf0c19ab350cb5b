package models

type MatchResult struct {
	ID              int `json:"idPartidoResultado"`
	EventActivityID int `json:"idEventoActividad"`
	HomeTeamID      int `json:"idEquipoLocal"`
	AwayTeamID      int `json:"idEquipoVisitante"`
	HomeScore       int `json:"puntosLocal"`
	AwayScore       int `json:"puntosVisitante"`
}

// ResultView - денормализованный результат матча для отображения и рейтинга.
type ResultView struct {
	ID              int     `json:"id"`
	EventID         int     `json:"idEvento"`
	EventDate       APITime `json:"eventoFecha"`
	EventActivityID int     `json:"idEventoActividad"`
	HomeTeamID      int     `json:"idEquipoLocal"`
	AwayTeamID      int     `json:"idEquipoVisitante"`
	ActivityID      int     `json:"idActividad"`
	ActivityName    string  `json:"actividadNombre"`
	EventName       string  `json:"eventoNombre"`
	HomeTeam        string  `json:"equipoLocal"`
	AwayTeam        string  `json:"equipoVisitante"`
	HomeScore       int     `json:"puntosLocal"`
	AwayScore       int     `json:"puntosVisitante"`
}

type Standing struct {
	TeamName string `json:"nombre"`
	Points   int    `json:"puntos"`
}

type EventResultGroup struct {
	EventID   int          `json:"idEvento"`
	EventName string       `json:"eventoNombre"`
	EventDate APITime      `json:"eventoFecha"`
	Results   []ResultView `json:"resultados"`
}
