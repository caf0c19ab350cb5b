package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/club-coordinator/services"
)

type TeamHandler struct {
	teamService services.TeamService
	responder
}

func NewTeamHandler(ts services.TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{
		teamService: ts,
		responder:   responder{logger: logger},
	}
}

// CheckMembership: GET /api/guard?event_id=&activity_id=
func (h *TeamHandler) CheckMembership(w http.ResponseWriter, r *http.Request) {
	eventID, err := queryInt(r, "event_id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	activityID, err := queryInt(r, "activity_id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	verdict, err := h.teamService.CheckMembership(r.Context(), sessionFrom(r), eventID, activityID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"guard": verdict})
}

// ListTeams: GET /api/teams?activity_id=&event_id=
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	activityID, err := queryInt(r, "activity_id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	eventID, err := queryInt(r, "event_id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	list, err := h.teamService.ListTeams(r.Context(), sessionFrom(r), activityID, eventID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, list)
}

func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	members, err := h.teamService.ListMembers(r.Context(), sessionFrom(r), teamID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"members": members})
}

// Submit вступает в выбранную команду или создаёт новую.
func (h *TeamHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req services.JoinRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	result, err := h.teamService.Submit(r.Context(), sessionFrom(r), req)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.ok(w, r, status, result)
}
