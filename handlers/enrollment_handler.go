package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/club-coordinator/services"
)

type EnrollmentHandler struct {
	enrollmentService services.EnrollmentService
	responder
}

func NewEnrollmentHandler(es services.EnrollmentService, logger *slog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: es,
		responder:         responder{logger: logger},
	}
}

func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req services.EnrollRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	result, err := h.enrollmentService.Enroll(r.Context(), sessionFrom(r), req)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyEnrolled {
		status = http.StatusOK
	}
	h.ok(w, r, status, result)
}

func (h *EnrollmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.enrollmentService.ListMine(r.Context(), sessionFrom(r))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"enrollments": enrollments})
}

func (h *EnrollmentHandler) ListEventActivities(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	activities, err := h.enrollmentService.ListEventActivities(r.Context(), sessionFrom(r), eventID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"activities": activities})
}
