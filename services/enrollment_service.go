package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/repositories"
)

type EnrollRequest struct {
	EventActivityID  int  `json:"event_activity_id"`
	WantsToBeCaptain bool `json:"wants_to_be_captain"`
}

// EnrollResult: AlreadyEnrolled == true означает, что бэкенд отклонил повторную запись (400),
// это не ошибка, Title и Text содержат информационное сообщение.
type EnrollResult struct {
	Enrolled        bool       `json:"enrolled"`
	AlreadyEnrolled bool       `json:"already_enrolled"`
	Kind            DialogKind `json:"kind,omitempty"`
	Title           string     `json:"title,omitempty"`
	Text            string     `json:"text,omitempty"`
}

type EnrollmentService interface {
	Enroll(ctx context.Context, sess SessionContext, req EnrollRequest) (*EnrollResult, error)
	ListMine(ctx context.Context, sess SessionContext) ([]models.Enrollment, error)
	ListEventActivities(ctx context.Context, sess SessionContext, eventID int) ([]models.EventActivity, error)
}

type enrollmentService struct {
	enrollments repositories.EnrollmentRepository
	events      repositories.EventRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewEnrollmentService(
	enrollments repositories.EnrollmentRepository,
	events repositories.EventRepository,
	logger *slog.Logger,
) EnrollmentService {
	return &enrollmentService{
		enrollments: enrollments,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, sess SessionContext, req EnrollRequest) (*EnrollResult, error) {
	userID, err := sessionUserID(sess)
	if err != nil {
		return nil, newDialog(DialogFailure, titleError, "No se ha encontrado el usuario. Vuelve a iniciar sesion.", err)
	}
	if req.EventActivityID <= 0 {
		return nil, newDialog(DialogWarning, titleMissingInfo, "Selecciona una actividad.", ErrValidationFailed)
	}
	ctx = withSession(ctx, sess)

	err = s.enrollments.Create(ctx, models.Enrollment{
		UserID:           userID,
		EventActivityID:  req.EventActivityID,
		WantsToBeCaptain: req.WantsToBeCaptain,
		EnrolledAt:       models.APITime{Time: s.now()},
	})
	if err == nil {
		return &EnrollResult{Enrolled: true}, nil
	}
	// Тело ответа 2xx бывает пустым или не JSON, это успех.
	if backend.Settle(err) == nil {
		return &EnrollResult{Enrolled: true}, nil
	}
	if backend.StatusOf(err) == http.StatusBadRequest {
		s.logger.InfoContext(ctx, "user already enrolled",
			slog.Int("user_id", userID),
			slog.Int("event_activity_id", req.EventActivityID),
		)
		return &EnrollResult{
			AlreadyEnrolled: true,
			Kind:            DialogInfo,
			Title:           titleEnrolled,
			Text:            "Ya estás inscrito en este evento.",
		}, nil
	}
	return nil, dialogFromBackend(err, "No se pudo completar la inscripción.")
}

func (s *enrollmentService) ListMine(ctx context.Context, sess SessionContext) ([]models.Enrollment, error) {
	userID, err := sessionUserID(sess)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByUser(withSession(ctx, sess), userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	return enrollments, nil
}

func (s *enrollmentService) ListEventActivities(ctx context.Context, sess SessionContext, eventID int) ([]models.EventActivity, error) {
	if eventID <= 0 {
		return nil, fmt.Errorf("%w: event id must be positive", ErrValidationFailed)
	}
	activities, err := s.events.ListEventActivities(withSession(ctx, sess), eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	return activities, nil
}
