package services

import (
	"errors"
	"fmt"
)

// Общие ошибки сервисного слоя, используются в маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Валидация и бизнес-правила
	ErrValidationFailed         = errors.New("validation failed")
	ErrTeamRequired             = errors.New("a team must be selected or created")
	ErrUserAlreadyInTeam        = errors.New("user is already in a team for this activity")
	ErrEnrolledInOtherActivity  = errors.New("user is enrolled in another activity of this event")
	ErrMinimumPlayersNotReached = errors.New("minimum number of players not reached")
	ErrNoCandidates             = errors.New("no users registered for this activity")
	ErrAlreadyCaptain           = errors.New("user is already the captain of this activity")
	ErrNoCaptain                = errors.New("activity has no captain")
	ErrAlreadyEnrolled          = errors.New("user is already enrolled")
	ErrUserNotEnrolled          = errors.New("user is not enrolled in this activity")

	// Конфликты
	ErrReplaceNotConfirmed = errors.New("replacing the current captain requires confirmation")
	ErrTeamFull            = errors.New("team is full or membership already exists")

	// Аутентификация и авторизация
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only an activity captain can perform this action")

	// Бэкенд
	ErrTeamIDMissing      = errors.New("team was created but no team id was returned")
	ErrTeamGone           = errors.New("team no longer exists")
	ErrBackendUnavailable = errors.New("backend is unavailable")
	ErrBackendFailed      = errors.New("backend request failed")

	ErrExportUnavailable = errors.New("results export storage is not configured")
	ErrAuditUnavailable  = errors.New("captain assignment log is not configured")
)

type DialogKind string

const (
	DialogWarning  DialogKind = "warning"
	DialogFailure  DialogKind = "error"
	DialogInfo     DialogKind = "info"
	DialogQuestion DialogKind = "question"
	DialogSuccess  DialogKind = "success"
)

// DialogError - ошибка, которую клиент показывает пользователю модальным окном.
// Err содержит одну из sentinel-ошибок выше, чтобы хендлеры могли использовать errors.Is.
type DialogError struct {
	Kind           DialogKind
	Title          string
	Text           string
	TeamIDToSelect int
	Err            error
}

func (e *DialogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Title, e.Text, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Text)
}

func (e *DialogError) Unwrap() error {
	return e.Err
}

func newDialog(kind DialogKind, title, text string, err error) *DialogError {
	return &DialogError{Kind: kind, Title: title, Text: text, Err: err}
}
