package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/services"
)

type captainManager interface {
	EnsureBoard(ctx context.Context, sess services.SessionContext) (services.BoardSnapshot, error)
	LoadBoard(ctx context.Context, sess services.SessionContext) (services.BoardSnapshot, error)
	Roster(ctx context.Context, sess services.SessionContext, eventActivityID int) ([]models.EnrolledUser, error)
	AssignRandom(ctx context.Context, sess services.SessionContext, eventActivityID int, confirm services.ConfirmFunc) (*services.AssignOutcome, error)
	AssignManual(ctx context.Context, sess services.SessionContext, eventActivityID, userID int, confirm services.ConfirmFunc) (*services.AssignOutcome, error)
	RemoveCaptain(ctx context.Context, sess services.SessionContext, eventActivityID int) (*services.AssignOutcome, error)
	RefreshCaptain(ctx context.Context, sess services.SessionContext, eventActivityID int) (services.BoardSnapshot, error)
	ListAssignments(ctx context.Context, sess services.SessionContext, eventActivityID, limit int) ([]*models.CaptainAssignment, error)
}

type assignInput struct {
	UserID         int  `json:"user_id"`
	ConfirmReplace bool `json:"confirm_replace"`
}

type CaptainHandler struct {
	captains captainManager
	responder
}

func NewCaptainHandler(cs captainManager, logger *slog.Logger) *CaptainHandler {
	return &CaptainHandler{
		captains:  cs,
		responder: responder{logger: logger},
	}
}

// Board отдаёт текущее состояние, при первом обращении запускает загрузку.
func (h *CaptainHandler) Board(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.captains.EnsureBoard(r.Context(), sessionFrom(r))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, snapshot)
}

func (h *CaptainHandler) ReloadBoard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.captains.LoadBoard(r.Context(), sessionFrom(r))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, snapshot)
}

func (h *CaptainHandler) Roster(w http.ResponseWriter, r *http.Request) {
	eaID, err := getIDFromURL(r, "eventActivityID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	users, err := h.captains.Roster(r.Context(), sessionFrom(r), eaID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"users": users})
}

func (h *CaptainHandler) AssignRandom(w http.ResponseWriter, r *http.Request) {
	eaID, err := getIDFromURL(r, "eventActivityID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input assignInput
	if err = readOptionalJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.captains.AssignRandom(r.Context(), sessionFrom(r), eaID, services.Confirmed(input.ConfirmReplace))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, outcome)
}

func (h *CaptainHandler) AssignManual(w http.ResponseWriter, r *http.Request) {
	eaID, err := getIDFromURL(r, "eventActivityID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input assignInput
	if err = readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	outcome, err := h.captains.AssignManual(r.Context(), sessionFrom(r), eaID, input.UserID, services.Confirmed(input.ConfirmReplace))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, outcome)
}

func (h *CaptainHandler) Remove(w http.ResponseWriter, r *http.Request) {
	eaID, err := getIDFromURL(r, "eventActivityID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	outcome, err := h.captains.RemoveCaptain(r.Context(), sessionFrom(r), eaID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, outcome)
}

func (h *CaptainHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	eaID, err := getIDFromURL(r, "eventActivityID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	snapshot, err := h.captains.RefreshCaptain(r.Context(), sessionFrom(r), eaID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, snapshot)
}

// Assignments: GET /api/captains/assignments?event_activity_id=&limit=
func (h *CaptainHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	eaID, err := queryInt(r, "event_activity_id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	assignments, err := h.captains.ListAssignments(r.Context(), sessionFrom(r), eaID, limit)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"assignments": assignments})
}
