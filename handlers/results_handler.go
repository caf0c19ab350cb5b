package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/services"
	"github.com/Dosada05/club-coordinator/storage"
)

type resultsManager interface {
	List(ctx context.Context, sess services.SessionContext, eventID, activityID int) ([]models.ResultView, error)
	Groups(ctx context.Context, sess services.SessionContext, eventID, activityID int) ([]models.EventResultGroup, error)
	Standings(ctx context.Context, sess services.SessionContext) ([]models.Standing, error)
	IsCaptain(ctx context.Context, sess services.SessionContext) bool
	Create(ctx context.Context, sess services.SessionContext, in services.ResultInput) (*models.MatchResult, error)
	Update(ctx context.Context, sess services.SessionContext, id int, in services.ResultInput) (*models.MatchResult, error)
	Delete(ctx context.Context, sess services.SessionContext, id int) error
}

type resultsExporter interface {
	Export(ctx context.Context, sess services.SessionContext) (*storage.UploadResult, error)
}

type ResultsHandler struct {
	results  resultsManager
	exporter resultsExporter
	responder
}

func NewResultsHandler(rs resultsManager, exporter resultsExporter, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{
		results:   rs,
		exporter:  exporter,
		responder: responder{logger: logger},
	}
}

func (h *ResultsHandler) filters(w http.ResponseWriter, r *http.Request) (eventID, activityID int, ok bool) {
	eventID, err := queryInt(r, "event_id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return 0, 0, false
	}
	activityID, err = queryInt(r, "activity_id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return 0, 0, false
	}
	return eventID, activityID, true
}

// List: GET /api/results?event_id=&activity_id=
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	eventID, activityID, ok := h.filters(w, r)
	if !ok {
		return
	}
	results, err := h.results.List(r.Context(), sessionFrom(r), eventID, activityID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"results": results, "total": len(results)})
}

func (h *ResultsHandler) Groups(w http.ResponseWriter, r *http.Request) {
	eventID, activityID, ok := h.filters(w, r)
	if !ok {
		return
	}
	groups, err := h.results.Groups(r.Context(), sessionFrom(r), eventID, activityID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"groups": groups})
}

func (h *ResultsHandler) Standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.results.Standings(r.Context(), sessionFrom(r))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"standings": standings})
}

// CanEdit сообщает SPA, показывать ли форму результатов. Сервер всё равно проверяет права.
func (h *ResultsHandler) CanEdit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	canEdit := services.SessionPermissions(sess).Has(services.PermissionRecordResults) || h.results.IsCaptain(r.Context(), sess)
	h.ok(w, r, http.StatusOK, jsonResponse{"can_edit": canEdit})
}

func (h *ResultsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ResultInput
	if err := readJSON(w, r, &in); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	created, err := h.results.Create(r.Context(), sessionFrom(r), in)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, jsonResponse{"result": created})
}

func (h *ResultsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "resultID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var in services.ResultInput
	if err = readJSON(w, r, &in); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	updated, err := h.results.Update(r.Context(), sessionFrom(r), id, in)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"result": updated})
}

func (h *ResultsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "resultID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if err = h.results.Delete(r.Context(), sessionFrom(r), id); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ResultsHandler) Export(w http.ResponseWriter, r *http.Request) {
	uploaded, err := h.exporter.Export(r.Context(), sessionFrom(r))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, jsonResponse{"export": uploaded})
}
