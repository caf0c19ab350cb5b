package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/club-coordinator/middleware"
	"github.com/Dosada05/club-coordinator/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

// dialogPayload - тело ошибки, которое SPA показывает модальным окном.
type dialogPayload struct {
	Kind           services.DialogKind `json:"kind"`
	Title          string              `json:"title"`
	Text           string              `json:"text"`
	TeamIDToSelect int                 `json:"team_id_to_select,omitempty"`
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// readOptionalJSON допускает пустое тело.
func readOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.ContentLength == 0 {
		return nil
	}
	err := readJSON(w, r, dst)
	if err != nil && err.Error() == "body must not be empty" {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// responder пишет ответы и логирует ошибки сервера.
type responder struct {
	logger *slog.Logger
}

func (rs responder) ok(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := writeJSON(w, status, data, nil); err != nil {
		rs.logger.ErrorContext(r.Context(), "failed to write response", slog.Any("error", err))
	}
}

func (rs responder) errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	if err := writeJSON(w, status, jsonResponse{"error": message}, nil); err != nil {
		rs.logger.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (rs responder) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.logger.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	rs.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func (rs responder) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// statusForError подбирает HTTP-статус по sentinel-ошибке сервисного слоя.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrTeamGone):
		return http.StatusNotFound

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrTeamRequired),
		errors.Is(err, services.ErrUserNotEnrolled):
		return http.StatusBadRequest

	case errors.Is(err, services.ErrUserAlreadyInTeam),
		errors.Is(err, services.ErrEnrolledInOtherActivity),
		errors.Is(err, services.ErrReplaceNotConfirmed),
		errors.Is(err, services.ErrTeamFull),
		errors.Is(err, services.ErrAlreadyEnrolled),
		errors.Is(err, services.ErrAlreadyCaptain):
		return http.StatusConflict

	case errors.Is(err, services.ErrMinimumPlayersNotReached),
		errors.Is(err, services.ErrNoCandidates),
		errors.Is(err, services.ErrNoCaptain):
		return http.StatusUnprocessableEntity

	case errors.Is(err, services.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrCaptainActionForbidden):
		return http.StatusForbidden

	case errors.Is(err, services.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrBackendFailed),
		errors.Is(err, services.ErrTeamIDMissing):
		return http.StatusBadGateway

	case errors.Is(err, services.ErrExportUnavailable),
		errors.Is(err, services.ErrAuditUnavailable):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
// DialogError отдаётся целиком, чтобы клиент показал тот же текст.
func (rs responder) mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)

	var dialog *services.DialogError
	if errors.As(err, &dialog) {
		if status >= http.StatusInternalServerError {
			rs.logger.WarnContext(r.Context(), "request failed",
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Any("error", err),
			)
		}
		rs.errorResponse(w, r, status, dialogPayload{
			Kind:           dialog.Kind,
			Title:          dialog.Title,
			Text:           dialog.Text,
			TeamIDToSelect: dialog.TeamIDToSelect,
		})
		return
	}

	if status == http.StatusInternalServerError {
		rs.serverErrorResponse(w, r, err)
		return
	}
	if status >= http.StatusInternalServerError {
		rs.logger.WarnContext(r.Context(), "request failed", slog.Int("status", status), slog.Any("error", err))
	}
	rs.errorResponse(w, r, status, err.Error())
}

func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", paramName)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value: %d", paramName, id)
	}
	return id, nil
}

// queryInt читает необязательный числовой параметр; пустой - 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s query parameter: %q", name, raw)
	}
	return v, nil
}

func sessionFrom(r *http.Request) services.Session {
	return middleware.SessionFromRequest(r)
}
